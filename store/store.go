// Package store persists the sales record collection. Every backend loads
// and saves the full collection as one JSON snapshot, the shape the ledger
// works with.
//
// The backend is chosen from a DSN:
//
//	memory:                      in-process, for tests and dry runs
//	sqlite://sales.db            single-row snapshot in a SQLite database
//	postgres://user@host/db      single-row snapshot in Postgres
//	file://sales.json            JSON file (the prefix is optional)
//
// Absent data loads as an empty collection. Corrupt data also loads as an
// empty collection and logs a warning, so a damaged snapshot never stops the
// ledger from starting.
//
// Example usage:
//
//	st, err := store.Open(ctx, "sales.json", store.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	records, err := st.Load(ctx)
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
)

// SnapshotKey names the snapshot row in SQL backends.
const SnapshotKey = "sales_ui_records"

// Store loads and saves the full record collection.
type Store interface {
	ledger.Store

	// Close releases the backend's resources.
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// options holds the settings shared by all backends.
type options struct {
	log logrus.FieldLogger
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger used to report corrupt data.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	return o
}

// Open returns the backend selected by dsn.
func Open(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	switch {
	case dsn == "memory:" || dsn == "memory://":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite://"), opts...)
	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"), opts...)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn, opts...)
	case strings.HasPrefix(dsn, "file://"):
		return NewFileStore(strings.TrimPrefix(dsn, "file://"), opts...), nil
	case dsn == "":
		return nil, fmt.Errorf("empty store DSN")
	default:
		return NewFileStore(dsn, opts...), nil
	}
}

// decodeRecords parses a snapshot. Blank input is an empty collection.
func decodeRecords(data []byte) ([]sales.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []sales.Record{}, nil
	}
	var records []sales.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []sales.Record{}
	}
	return records, nil
}

func encodeRecords(records []sales.Record) ([]byte, error) {
	if records == nil {
		records = []sales.Record{}
	}
	return json.Marshal(records)
}

// recoverCorrupt turns a decode failure into an empty collection plus a warning.
func (o *options) recoverCorrupt(source string, data []byte) []sales.Record {
	records, err := decodeRecords(data)
	if err != nil {
		o.log.WithError(err).WithField("source", source).Warn("Ignoring corrupt sales data")
		return []sales.Record{}
	}
	return records
}
