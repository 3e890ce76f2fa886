// Package sqlite provides SQLite database operations for refinery.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path     string
	MaxConns int
	WALMode  bool
}

// Store wraps the database handle with a prepared statement cache. All
// higher-level stores (sessions, events, prompt records) share one Store.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// NewStore opens the database, applies pragmas, and runs migrations.
func NewStore(cfg StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if cfg.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newStoreFromDB(db), nil
}

// newStoreFromDB wraps an existing handle; used by tests.
func newStoreFromDB(db *sql.DB) *Store {
	return &Store{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}
}

// GetStmt returns a cached prepared statement for the query, preparing it
// on first use.
func (s *Store) GetStmt(query string) (*sql.Stmt, error) {
	s.mu.RLock()
	stmt, ok := s.stmts[query]
	s.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// ExecContext executes a query through the statement cache.
func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := s.GetStmt(query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

// QueryContext runs a query through the statement cache.
func (s *Store) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := s.GetStmt(query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// QueryRowContext runs a single-row query through the statement cache.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	stmt, err := s.GetStmt(query)
	if err != nil {
		// Surface the prepare error through Scan.
		return s.db.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close releases cached statements and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
	s.mu.Unlock()
	return s.db.Close()
}
