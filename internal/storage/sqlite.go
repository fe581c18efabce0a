package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// mmapSize maps the database file into memory up to 30GiB so large
// knowledge bases read at page-cache speed.
const mmapSize = 30 << 30

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// session carries all read and write operations for a knowledge base.
// It is embedded in both DB and Tx so the same operations run either
// auto-committed or inside an explicit transaction.
type session struct {
	q querier
}

// DB is an open handle to a single knowledge base file.
type DB struct {
	session
	db   *sql.DB
	name string
	path string
}

// Name returns the knowledge base name including the .db suffix.
func (d *DB) Name() string { return d.name }

// Path returns the on-disk location of the knowledge base.
func (d *DB) Path() string { return d.path }

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// BeginTx starts a transaction. Every ingestion job runs inside exactly
// one transaction so a crash mid-job leaves the knowledge base unchanged.
func (d *DB) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{session: session{q: tx}, tx: tx}, nil
}

// Tx wraps a SQL transaction and exposes the same operations as DB.
type Tx struct {
	session
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set mmap size: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}
