// Package database stores the publication history of hidden services
// in a local SQLite file. Each bring-up is one row recording the
// address, forward target, mode, and lifetime; private key material is
// never written to the database.
package database
