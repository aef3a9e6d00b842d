package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config selects the storage backend. When PostgresDSN is set the
// service runs against Postgres; otherwise it falls back to a local
// SQLite file, which is enough for development.
type Config struct {
	PostgresDSN string
	SQLitePath  string
}

// Connect opens the database and returns the handle. The handle is
// constructed once at process start and passed to every component that
// needs it; nothing in this package holds global state.
func Connect(cfg Config) (*gorm.DB, error) {
	if cfg.PostgresDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		path = "passreg.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return db, nil
}
