// Package index crawls the filesystem into a SQLite store and loads it into
// immutable in-memory snapshots for name resolution.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBatchSize = 1000

var schema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		extension TEXT NOT NULL,
		size INTEGER NOT NULL,
		modified INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_name ON files(name)`,
	`CREATE INDEX IF NOT EXISTS idx_files_ext ON files(extension)`,
	`CREATE INDEX IF NOT EXISTS idx_files_modified ON files(modified)`,
	`CREATE TABLE IF NOT EXISTS directories (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent TEXT NOT NULL,
		modified INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_directories_name ON directories(name)`,
}

// Store is the durable filesystem index.
type Store struct {
	db        *sql.DB
	path      string
	batchSize int
}

// Open opens or creates the index database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, batchSize: defaultBatchSize}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SetBatchSize sets how many rows are written per transaction.
func (s *Store) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	s.batchSize = n
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Counts returns the number of indexed files and directories.
func (s *Store) Counts(ctx context.Context) (files, dirs int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&files); err != nil {
		return 0, 0, fmt.Errorf("failed to count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM directories`).Scan(&dirs); err != nil {
		return 0, 0, fmt.Errorf("failed to count directories: %w", err)
	}
	return files, dirs, nil
}

// Load reads the whole index into a new Snapshot.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	files, err := s.loadFiles(ctx)
	if err != nil {
		return nil, err
	}
	dirs, err := s.loadDirs(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(files, dirs), nil
}

func (s *Store) loadFiles(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, name, extension, size, modified FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modified int64
		if err := rows.Scan(&e.Path, &e.Name, &e.Ext, &e.Size, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		e.Kind = File
		e.Parent = parentOf(e.Path)
		e.Modified = time.Unix(0, modified)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) loadDirs(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, name, parent, modified FROM directories ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modified int64
		if err := rows.Scan(&e.Path, &e.Name, &e.Parent, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan directory row: %w", err)
		}
		e.Kind = Dir
		e.Modified = time.Unix(0, modified)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// flush writes one batch in a single transaction, replacing rows with the same path.
func (s *Store) flush(ctx context.Context, batch []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	fileStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO files (path, name, extension, size, modified) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer fileStmt.Close()

	dirStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO directories (path, name, parent, modified) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare directory insert: %w", err)
	}
	defer dirStmt.Close()

	for _, e := range batch {
		if e.Kind == Dir {
			_, err = dirStmt.ExecContext(ctx, e.Path, e.Name, e.Parent, e.Modified.UnixNano())
		} else {
			_, err = fileStmt.ExecContext(ctx, e.Path, e.Name, e.Ext, e.Size, e.Modified.UnixNano())
		}
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}
