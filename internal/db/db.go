// Package db is the SQLite store for identities and trips. The schema is
// managed by golang-migrate from migrations embedded in the binary.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trips.ingest/internal/monitoring"
)

// DefaultPath is the database file used when no -db-path is given.
const DefaultPath = "trips.db"

// connPragmas are set through the DSN so every pooled connection gets them.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

type DB struct {
	*sql.DB
	log *slog.Logger
}

// OpenDB opens the database and applies connection pragmas without touching
// the schema. The migrate subcommand uses it directly.
func OpenDB(path string, log *slog.Logger) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + connPragmas
	} else {
		dsn += "?" + connPragmas
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, log: monitoring.Discard(log)}, nil
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string, log *slog.Logger) (*DB, error) {
	db, err := OpenDB(path, log)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
