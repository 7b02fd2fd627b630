// Package ledger implements the allocation and valuation engine of the grain
// sales ledger. It holds the record collection, resolves lineages, tracks how
// much of every record is still available to Set or Roll, classifies record
// actions and computes per-lineage valuations.
//
// The ledger enforces that:
//   - Set and Roll quantities drawn from a record never exceed its quantity
//   - Every derived record inherits the sale type of its origin
//   - Record ids are assigned as max+1 and never reused in a session
//
// Mutations use a two-phase approach. A pure validator checks the submitted
// fields against the current state and returns either field errors or a
// delta describing the finalized record; the ledger then applies the delta
// and persists the whole collection through its Store.
//
// Example usage:
//
//	st, err := store.Open(ctx, "sales.json", store.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	l, err := ledger.Open(ctx, st, ledger.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	rec, err := l.Submit(ctx, fields, ledger.ActionContext{Mode: ledger.ModeCreate})
//	if err != nil {
//	    var verr *ledger.ValidationErrors
//	    if errors.As(err, &verr) {
//	        for _, e := range verr.Errors {
//	            fmt.Println(e)
//	        }
//	    }
//	}
package ledger

import (
	"cmp"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

// Store loads and saves the full record collection.
type Store interface {
	Load(ctx context.Context) ([]sales.Record, error)
	Save(ctx context.Context, records []sales.Record) error
}

// Ledger is the in-memory record collection plus the indexes needed to
// answer lineage questions. It is the session's source of truth; the Store
// only mirrors it.
//
// A Ledger is not safe for concurrent mutation. Callers that share one
// across goroutines must guard it.
type Ledger struct {
	records  []sales.Record
	index    map[sales.ID]int
	children map[sales.ID][]sales.ID
	lastID   sales.ID

	store  Store
	config *Config
	log    logrus.FieldLogger
	cache  *valuationCache
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithConfig sets the ledger configuration.
func WithConfig(cfg *Config) Option {
	return func(l *Ledger) {
		l.config = cfg
	}
}

// WithLogger sets the logger used for mutations and persistence.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithStore sets the store mutations are persisted to.
func WithStore(st Store) Option {
	return func(l *Ledger) {
		l.store = st
	}
}

// New creates a ledger over the given records. Without WithStore the ledger
// is purely in-memory.
func New(records []sales.Record, opts ...Option) *Ledger {
	l := &Ledger{
		config: NewConfig(),
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newValuationCache(l.config.CacheSize)
	l.reset(records)
	return l
}

// Open loads the collection from st. Records lacking updated_at are
// backfilled with the current time and the collection is re-saved once.
func Open(ctx context.Context, st Store, opts ...Option) (*Ledger, error) {
	timer := telemetry.StartTimer(ctx, "ledger.open")
	defer timer.End()

	loadTimer := timer.Child("store.load")
	records, err := st.Load(ctx)
	loadTimer.End()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	l := New(records, append([]Option{WithStore(st)}, opts...)...)

	backfilled := l.backfill()
	if backfilled > 0 {
		l.log.WithField("records", backfilled).Info("Backfilled missing updated_at")

		saveTimer := timer.Child("store.save")
		err := l.persist(ctx)
		saveTimer.End()
		if err != nil {
			return l, err
		}
	}

	return l, nil
}

// backfill stamps records without updated_at and returns how many changed.
func (l *Ledger) backfill() int {
	now := l.config.now()
	n := 0
	for i := range l.records {
		if l.records[i].UpdatedAt.IsZero() {
			l.records[i].UpdatedAt = now
			n++
		}
	}
	return n
}

// reset replaces the collection and rebuilds the indexes.
func (l *Ledger) reset(records []sales.Record) {
	l.records = make([]sales.Record, 0, len(records))
	l.index = make(map[sales.ID]int, len(records))
	l.children = make(map[sales.ID][]sales.ID)

	for _, r := range records {
		if _, dup := l.index[r.ID]; dup {
			l.log.WithField("record_id", r.ID).Warn("Skipping record with duplicate id")
			continue
		}
		l.index[r.ID] = len(l.records)
		l.records = append(l.records, r)
		l.lastID = max(l.lastID, r.ID)
		if r.ParentID != nil {
			l.children[*r.ParentID] = append(l.children[*r.ParentID], r.ID)
		}
	}
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of the collection in storage order.
func (l *Ledger) Records() []sales.Record {
	out := make([]sales.Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the record with the given id.
func (l *Ledger) Get(id sales.ID) (sales.Record, bool) {
	i, ok := l.index[id]
	if !ok {
		return sales.Record{}, false
	}
	return l.records[i], true
}

// Origins returns every origin record ordered by id.
func (l *Ledger) Origins() []sales.Record {
	var out []sales.Record
	for _, r := range l.records {
		if r.IsOrigin() {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b sales.Record) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Orphans returns records whose parent id does not resolve.
func (l *Ledger) Orphans() []sales.Record {
	var out []sales.Record
	for _, parent := range l.sortedParents() {
		if _, ok := l.index[parent]; ok {
			continue
		}
		for _, id := range l.children[parent] {
			out = append(out, l.records[l.index[id]])
		}
	}
	return out
}

func (l *Ledger) sortedParents() []sales.ID {
	parents := maps.Keys(l.children)
	slices.Sort(parents)
	return parents
}

// nextID returns max id + 1, or 1 for an empty collection. Ids of records
// deleted during the session still count, so they are never handed out again.
func (l *Ledger) nextID() sales.ID {
	return l.lastID + 1
}

// persist saves the full collection. Failures are reported, never swallowed;
// the in-memory state stays as it is.
func (l *Ledger) persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, l.Records()); err != nil {
		l.log.WithError(err).Error("Failed to persist records")
		return &PersistError{Err: err}
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
