package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options describes how to open the backing database.
type Options struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	JournalMode     string // sqlite only
}

// Open connects to the database described by opts and verifies the
// connection with a ping.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	var driverName string
	switch opts.Driver {
	case "sqlite", "":
		driverName = "sqlite3"
	case "postgres":
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	if opts.DSN == "" {
		return nil, fmt.Errorf("empty %s dsn", opts.Driver)
	}

	db, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driverName == "sqlite3" {
		maxOpen := opts.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 1
		}
		db.SetMaxOpenConns(maxOpen)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if driverName == "sqlite3" && opts.JournalMode != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+opts.JournalMode); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
	}

	return db, nil
}
