// Package storage owns the relational store: connection pooling, per-engine
// SQL dialects and the start-up schema bootstrap.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/logging"
)

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// QueryHook observes a statement, after rebinding, right before it runs
type QueryHook func(ctx context.Context, query string)

// DB is a pooled database handle that rebinds ? placeholders for its dialect
type DB struct {
	sql     *sql.DB
	dialect Dialect
	hook    QueryHook
}

// Open connects using the database section of the configuration. An empty
// DuckDB path opens a private in-memory database.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var (
		driverName string
		dsn        string
	)

	switch dialect.Name() {
	case DriverDuckDB:
		driverName = "duckdb"
		dsn = cfg.Path

		if dsn != "" && dsn != ":memory:" {
			dsn = config.ExpandPath(dsn)
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
		driverName = "pgx"
		dsn = cfg.DSN

		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	sqlDB.SetConnMaxLifetime(config.Duration(cfg.ConnMaxLifetime))
	sqlDB.SetConnMaxIdleTime(config.Duration(cfg.ConnMaxIdleTime))

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.GetLogger().WithFields(map[string]any{
		"driver": dialect.Name(),
		"max":    cfg.MaxConnections,
	}).Debug("Database pool ready")

	return &DB{sql: sqlDB, dialect: dialect}, nil
}

// OpenMemory opens an in-memory DuckDB database with the schema applied
func OpenMemory(ctx context.Context) (*DB, error) {
	db, err := Open(ctx, config.DatabaseConfig{Driver: DriverDuckDB, MaxConnections: 4})
	if err != nil {
		return nil, err
	}

	if err := db.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Dialect returns the SQL dialect of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Initialize applies pending schema migrations
func (db *DB) Initialize(ctx context.Context) error {
	return NewMigrationManager(db).MigrateUp(ctx)
}

// SetQueryHook installs h on every statement run outside a transaction.
// It must be set before the DB is shared between goroutines.
func (db *DB) SetQueryHook(h QueryHook) {
	db.hook = h
}

func (db *DB) prepare(ctx context.Context, query string) string {
	query = db.dialect.Rebind(query)
	if db.hook != nil {
		db.hook(ctx, query)
	}

	return query
}

// QueryContext runs a query after rebinding its placeholders
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ctx, db.prepare(ctx, query), args...)
}

// QueryRowContext runs a single-row query after rebinding its placeholders
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.sql.QueryRowContext(ctx, db.prepare(ctx, query), args...)
}

// ExecContext runs a statement after rebinding its placeholders
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.sql.ExecContext(ctx, db.prepare(ctx, query), args...)
}

// BeginTx starts a transaction that rebinds like its parent
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.sql.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Tx{tx: tx, dialect: db.dialect}, nil
}

// Ping verifies the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Stats returns pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.sql.Stats()
}

// Close releases the pool
func (db *DB) Close() error {
	if db.sql != nil {
		return db.sql.Close()
	}

	return nil
}

// Tx is a transaction bound to a dialect
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// ExecContext runs a statement inside the transaction
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row query inside the transaction
func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
