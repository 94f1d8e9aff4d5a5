package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/onionup/internal/config"
	"github.com/nao1215/onionup/internal/database"
	"github.com/nao1215/onionup/internal/log"
	"github.com/nao1215/onionup/internal/onion"
	"github.com/nao1215/onionup/internal/report"
	"github.com/nao1215/onionup/internal/server"
	"github.com/spf13/cobra"
)

// NewUpCmd creates the up command.
func NewUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Publish a local port as a Tor hidden service",
		Long: `Up brings a hidden service online and keeps it up until interrupted.

The sequence is:
  1. Prepare the tor environment (torrc, data directory, cookie auth)
  2. Start a tor daemon, or adopt one already listening on the control port
  3. Authenticate on the control port and wait for 100% bootstrap
  4. Publish the hidden service and print its onion address

The service is removed and the control connection closed on Ctrl-C.
Without --key-file the service is ephemeral: tor generates a fresh key
and the address changes on every run.

Examples:
  # Publish 127.0.0.1:5000 as an ephemeral hidden service
  onionup up

  # Forward onion port 80 to a local web server on port 8080
  onionup up --virtual-port 80 --local-port 8080

  # Reuse a saved key so the address stays stable
  onionup up --key-file service.key

  # Serve a built-in echo backend so the address is testable end to end
  onionup up --serve

  # Full dry run without a tor daemon, with a deterministic address
  onionup up --simulate

Configuration file (.onionup) example:
  control_port: 9051
  local_port: 8080
  virtual_port: 80
  mode: ephemeral`,
		Args: cobra.NoArgs,
		RunE: runUpCmd,
	}

	// Tor environment flags
	cmd.Flags().String("tor", "", "Path to the tor binary (default: search PATH and common locations)")
	cmd.Flags().String("torrc", "", "Path to the torrc file to write or extend")
	cmd.Flags().String("data-dir", "", "Tor data directory")
	cmd.Flags().Int("control-port", config.DefaultControlPort, "Tor control port")
	cmd.Flags().Duration("bootstrap-timeout", config.DefaultBootstrapTimeout, "How long to wait for tor to reach 100% bootstrap")

	// Service flags
	cmd.Flags().String("bind", config.DefaultLocalBindIP, "Local address the virtual port forwards to")
	cmd.Flags().IntP("local-port", "p", config.DefaultLocalPort, "Local port the virtual port forwards to")
	cmd.Flags().IntP("virtual-port", "P", config.DefaultVirtualPort, "Port exposed on the onion side")
	cmd.Flags().String("key-file", "", "File holding an ED25519-V3 key blob for a stable address")

	// Behavior flags
	cmd.Flags().BoolP("simulate", "s", false, "Run the lifecycle without a tor daemon and print a deterministic address")
	cmd.Flags().Bool("serve", false, "Run the built-in line-echo backend on the forward target")
	cmd.Flags().BoolP("markdown", "m", false, "Print the summary as markdown")
	cmd.Flags().Bool("no-history", false, "Do not record this publication in the history database")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .onionup in current or home directory)")

	return cmd
}

// runUpCmd executes the up command.
func runUpCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildUpConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The built-in backend starts before publication so the forward
	// target answers from the first connection.
	serve, _ := cmd.Flags().GetBool("serve")
	if serve && !cfg.Service.SimulationMode {
		backend := server.New(
			net.JoinHostPort(cfg.Service.LocalBindIP, strconv.Itoa(cfg.Service.LocalPort)),
			nil,
			server.WithLogger(logger),
		)
		if err := backend.Start(ctx); err != nil {
			return fmt.Errorf("start built-in backend: %w", err)
		}
		defer func() {
			if err := backend.Stop(); err != nil {
				logger.Warn("stop built-in backend", slog.String("error", err.Error()))
			}
		}()
	}

	manager := onion.NewManager(cfg, onion.WithLogger(logger))
	if err := manager.Setup(ctx); err != nil {
		return err
	}

	record, err := manager.Record()
	if err != nil {
		return err
	}

	publishID := recordHistory(cmd, cfg, logger, &record)

	if err := writeSummary(cmd, cfg, manager, &record); err != nil {
		return err
	}

	// Simulation has nothing to keep alive; report and exit.
	if cfg.Service.SimulationMode {
		teardown(cmd, cfg, logger, manager, publishID)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to remove the service and exit.")
	<-ctx.Done()
	logger.Info("shutting down")

	teardown(cmd, cfg, logger, manager, publishID)
	return nil
}

// teardown removes the service and closes the history row. Failures
// are warnings; shutdown always completes.
func teardown(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, manager *onion.Manager, publishID int64) {
	if err := manager.Teardown(); err != nil {
		logger.Warn("teardown was not clean", slog.String("error", err.Error()))
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: the hidden service may not have been removed cleanly")
		return
	}
	if publishID != 0 {
		markRemoved(cfg, logger, publishID)
	}
}

// recordHistory inserts the publication into the history database and
// returns the row id, or 0 when history is disabled or unavailable.
// History failures never block a bring-up.
func recordHistory(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, record *onion.Record) int64 {
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		return 0
	}

	hdb, err := database.Open(cfg.HistoryDBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("open history database", slog.String("error", err.Error()))
		return 0
	}
	defer hdb.Close()

	id, err := hdb.RecordPublish(context.Background(), &database.Publication{
		OnionAddress: record.Address(),
		VirtualPort:  record.VirtualPort,
		Target:       record.Target,
		Mode:         string(record.Mode),
		Simulated:    record.Simulated,
	})
	if err != nil {
		logger.Warn("record publication", slog.String("error", err.Error()))
		return 0
	}
	return id
}

// markRemoved closes the history row for a clean teardown.
func markRemoved(cfg *config.Config, logger *slog.Logger, id int64) {
	hdb, err := database.Open(cfg.HistoryDBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("open history database", slog.String("error", err.Error()))
		return
	}
	defer hdb.Close()

	if err := hdb.RecordRemoval(context.Background(), id); err != nil {
		logger.Warn("record removal", slog.String("error", err.Error()))
	}
}

// writeSummary renders the bring-up summary to stdout.
func writeSummary(cmd *cobra.Command, cfg *config.Config, manager *onion.Manager, record *onion.Record) error {
	summary := &report.Summary{
		OnionAddress: record.Address(),
		VirtualPort:  record.VirtualPort,
		Target:       record.Target,
		Mode:         string(record.Mode),
		Simulated:    record.Simulated,
		CreatedAt:    time.Now(),
	}
	if env := manager.Environment(); env != nil {
		summary.TorBinary = env.TorBinary
		summary.SpawnedDaemon = env.SpawnedByUs
	}

	if markdown, _ := cmd.Flags().GetBool("markdown"); markdown {
		return report.NewMarkdownWriter(cmd.OutOrStdout()).WriteSummary(summary)
	}
	return report.NewPlainWriter(cmd.OutOrStdout()).WriteSummary(summary)
}

// buildUpConfig layers defaults, the configuration file, and flags,
// in that order.
func buildUpConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, _ := cmd.Flags().GetString("config")
	cfg.ConfigFilePath = configPath
	if found := config.FindConfigFile(configPath); found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("load configuration file %s: %w", found, err)
		}
		file.Apply(cfg)
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	// Flags win over the configuration file, but only when set.
	flags := cmd.Flags()
	if flags.Changed("tor") {
		cfg.Paths.TorBinary, _ = flags.GetString("tor")
	}
	if flags.Changed("torrc") {
		cfg.Paths.TorrcPath, _ = flags.GetString("torrc")
	}
	if flags.Changed("data-dir") {
		cfg.Paths.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("control-port") {
		cfg.Settings.ControlPort, _ = flags.GetInt("control-port")
	}
	if flags.Changed("bootstrap-timeout") {
		cfg.Service.BootstrapTimeout, _ = flags.GetDuration("bootstrap-timeout")
	}
	if flags.Changed("bind") {
		cfg.Service.LocalBindIP, _ = flags.GetString("bind")
	}
	if flags.Changed("local-port") {
		cfg.Service.LocalPort, _ = flags.GetInt("local-port")
	}
	if flags.Changed("virtual-port") {
		cfg.Service.VirtualPort, _ = flags.GetInt("virtual-port")
	}

	if keyFile, _ := flags.GetString("key-file"); keyFile != "" {
		blob, err := os.ReadFile(keyFile) //nolint:gosec // key file path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		key := strings.TrimSpace(string(blob))
		if key == "" {
			return nil, errors.New("key file is empty: expected an ED25519-V3 key blob")
		}
		cfg.Service.Mode = config.ModeProvidedKey
		cfg.Service.ProvidedKey = key
	}

	cfg.Service.SimulationMode, _ = flags.GetBool("simulate")
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}
