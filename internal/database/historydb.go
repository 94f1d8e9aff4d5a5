package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// dbFileName is the SQLite file kept under the history directory.
const dbFileName = "onionup.db"

// HistoryDB records every hidden-service publication this tool
// performs, so "history" can answer which addresses were brought up,
// when, and whether they were torn down cleanly.
//
// Design decision: one database file for all runs rather than one per
// service. Publications are small rows and the interesting queries
// span runs ("what did I publish last week"), which a single file
// answers with one table.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when
	// they are missing. The history command sets this to false so it
	// never invents an empty history.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging. Recommended; the up
	// command writes while a concurrent history command may read.
	EnableWAL bool
}

// DefaultOptions returns the options most callers want.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database under dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no history database at %s: nothing has been published yet", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check history database: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// SQLite supports a single writer; a larger pool only produces
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the location of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the schema if it does not exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publishes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		onion_address TEXT NOT NULL,
		virtual_port INTEGER NOT NULL,
		target TEXT NOT NULL,
		mode TEXT NOT NULL,
		simulated INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		removed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_publishes_address ON publishes(onion_address);
	CREATE INDEX IF NOT EXISTS idx_publishes_created ON publishes(created_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Publication is one recorded bring-up.
type Publication struct {
	// ID is the row identifier.
	ID int64
	// OnionAddress is the published address including ".onion".
	OnionAddress string
	// VirtualPort is the onion-side port.
	VirtualPort int
	// Target is the local forward destination in ip:port form.
	Target string
	// Mode is the persistence mode the service ran with.
	Mode string
	// Simulated marks addresses produced without a tor daemon.
	Simulated bool
	// CreatedAt is when the service was published.
	CreatedAt time.Time
	// RemovedAt is when the service was torn down. Zero while the
	// service is still up or when the shutdown was not clean.
	RemovedAt time.Time
}

// RecordPublish inserts a row for a freshly published service and
// returns its identifier for the later removal update. Key material is
// deliberately not part of the schema; only the address is stored.
func (hdb *HistoryDB) RecordPublish(ctx context.Context, pub *Publication) (int64, error) {
	query := `
	INSERT INTO publishes (onion_address, virtual_port, target, mode, simulated)
	VALUES (?, ?, ?, ?, ?)
	`

	simulated := 0
	if pub.Simulated {
		simulated = 1
	}

	result, err := hdb.db.ExecContext(ctx, query,
		pub.OnionAddress,
		pub.VirtualPort,
		pub.Target,
		pub.Mode,
		simulated,
	)
	if err != nil {
		return 0, fmt.Errorf("record publication: %w", err)
	}

	return result.LastInsertId()
}

// RecordRemoval marks the publication as torn down.
func (hdb *HistoryDB) RecordRemoval(ctx context.Context, id int64) error {
	query := `
	UPDATE publishes SET removed_at = CURRENT_TIMESTAMP WHERE id = ?
	`

	if _, err := hdb.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("record removal: %w", err)
	}
	return nil
}

// Recent returns the most recent publications, newest first, up to
// limit rows. A non-positive limit returns everything.
func (hdb *HistoryDB) Recent(ctx context.Context, limit int) ([]Publication, error) {
	query := `
	SELECT id, onion_address, virtual_port, target, mode, simulated, created_at, removed_at
	FROM publishes
	ORDER BY created_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var results []Publication
	for rows.Next() {
		var pub Publication
		var simulated int
		var createdAt string
		var removedAt sql.NullString

		if err := rows.Scan(
			&pub.ID,
			&pub.OnionAddress,
			&pub.VirtualPort,
			&pub.Target,
			&pub.Mode,
			&simulated,
			&createdAt,
			&removedAt,
		); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}

		pub.Simulated = simulated != 0
		pub.CreatedAt = parseTimestamp(createdAt)
		if removedAt.Valid {
			pub.RemovedAt = parseTimestamp(removedAt.String)
		}
		results = append(results, pub)
	}

	return results, rows.Err()
}

// timestampFormats lists the shapes SQLite returns timestamps in,
// most common first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp, returning zero time when
// no known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
