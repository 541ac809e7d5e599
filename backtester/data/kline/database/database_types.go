package database

import (
	"database/sql"
	"embed"
	"errors"
)

// Supported drivers, also used as goose dialects
const (
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

var (
	errUnsupportedDriver = errors.New("unsupported database driver")
	errNoDSN             = errors.New("database connection string not set")
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds the connection details for a candle store
type Config struct {
	Driver string `json:"driver"`
	// DSN is a file path for sqlite3 and a connection string for postgres
	DSN string `json:"dsn"`
	// MigrationDir overrides the embedded migrations
	MigrationDir string `json:"migration-dir,omitempty"`
}

// Provider serves bars from the candle table
type Provider struct {
	cfg Config
	SQL *sql.DB
}
