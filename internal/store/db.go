// Package store persists the resource index: a SQLite database under
// .aster/ holding occurrences, per-file fingerprints for staleness checks,
// and build metadata, plus a human-readable index-meta.json sidecar and
// the advisory lock serializing writers.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"aster/internal/errors"
	"aster/internal/paths"
)

// DB represents a database connection with transaction helpers.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the index database at .aster/aster.db under the
// scan root. A new database gets the current schema; an existing one is
// version-checked and reported as IndexVersionError on mismatch, never
// migrated in place.
func Open(scanRoot string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureAsterDir(scanRoot); err != nil {
		return nil, errors.New(errors.MutationIOError, "cannot create .aster directory", err)
	}

	dbPath := paths.DatabasePath(scanRoot)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.IndexCorrupt, "cannot open index database", err)
	}

	// Set pragmas for performance and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.New(errors.IndexCorrupt,
				fmt.Sprintf("cannot configure index database at %s", dbPath), err)
		}
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !dbExists {
		logger.Info("creating index database", "path", dbPath)
		if err := db.initializeSchema(); err != nil {
			conn.Close()
			return nil, errors.New(errors.IndexCorrupt, "cannot initialize index schema", err)
		}
		return db, nil
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		conn.Close()
		return nil, errors.New(errors.IndexCorrupt, "index database is unreadable", err)
	}
	if version != currentSchemaVersion {
		conn.Close()
		return nil, errors.Newf(errors.IndexVersionError,
			"index database has schema version %d; this build uses %d",
			version, currentSchemaVersion)
	}

	return db, nil
}

// Remove deletes the index database files under the scan root. Used to
// rebuild after an incompatible or corrupt store.
func Remove(scanRoot string) error {
	dbPath := paths.DatabasePath(scanRoot)
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.New(errors.MutationIOError,
				fmt.Sprintf("cannot remove %s", p), err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// BeginTx starts a new transaction.
func (db *DB) BeginTx() (*sql.Tx, error) {
	return db.conn.Begin()
}

// WithTx executes a function within a transaction. If the function
// returns an error, the transaction is rolled back; otherwise it is
// committed.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err, "rollbackError", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
