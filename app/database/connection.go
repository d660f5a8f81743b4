package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite session database and migrates it. An empty
// path opens a private in-memory database that lives as long as the process.
func NewConnection(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists only on the connection that created it.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: sqlDB}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	slog.Debug("Database migrations applied", "version", version, "dirty", dirty)

	return db, nil
}

func dataSourceName(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
