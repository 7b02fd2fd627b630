package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/robinvdvleuten/salesledger/sales"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	driver string
	create string
	load   string
	upsert string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		create: `CREATE TABLE IF NOT EXISTS sales_state (
			bucket TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		load:   `SELECT payload FROM sales_state WHERE bucket = ?`,
		upsert: `INSERT INTO sales_state(bucket, payload) VALUES(?, ?) ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
	}

	postgresDialect = dialect{
		driver: "pgx",
		create: `CREATE TABLE IF NOT EXISTS sales_state (
			bucket TEXT PRIMARY KEY,
			payload JSONB NOT NULL
		)`,
		load:   `SELECT payload FROM sales_state WHERE bucket = $1`,
		upsert: `INSERT INTO sales_state(bucket, payload) VALUES($1, $2) ON CONFLICT(bucket) DO UPDATE SET payload = EXCLUDED.payload`,
	}
)

// SQLStore keeps the collection as a single JSON snapshot row keyed by
// SnapshotKey. Each save upserts the row inside one transaction.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	source  string
	opts    *options
	mu      sync.Mutex
}

// NewSQLiteStore opens (and creates if needed) the SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if path == "" {
		path = "sales.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return openSQL(ctx, sqliteDialect, path, path, opts)
}

// NewPostgresStore connects to the Postgres database at dsn.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	return openSQL(ctx, postgresDialect, dsn, "postgres", opts)
}

func openSQL(ctx context.Context, d dialect, dsn, source string, opts []Option) (*SQLStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLStore{db: db, dialect: d, source: source, opts: newOptions(opts)}, nil
}

// Load reads the snapshot row. A missing row is an empty collection.
func (s *SQLStore) Load(ctx context.Context) ([]sales.Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.load, SnapshotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []sales.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return s.opts.recoverCorrupt(s.source, payload), nil
}

// Save replaces the snapshot row.
func (s *SQLStore) Save(ctx context.Context, records []sales.Record) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeRecords(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, s.dialect.upsert, SnapshotKey, data); err != nil {
		return fmt.Errorf("upsert %s: %w", SnapshotKey, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
