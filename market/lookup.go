package market

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// ErrStale is returned by Request when a newer request for the same
// purpose started while the fetch was in flight.
var ErrStale = errors.New("superseded by a newer request")

// Lookup fetches boards from a Source. Concurrent fetches of the same crop
// share one call, and a failing source yields an empty board.
type Lookup struct {
	source  Source
	timeout time.Duration
	log     logrus.FieldLogger

	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(d time.Duration) LookupOption {
	return func(l *Lookup) {
		l.timeout = d
	}
}

// WithLogger sets the logger fetch failures are reported to.
func WithLogger(log logrus.FieldLogger) LookupOption {
	return func(l *Lookup) {
		l.log = log
	}
}

// NewLookup creates a lookup over source.
func NewLookup(source Source, opts ...LookupOption) *Lookup {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Lookup{
		source:      source,
		timeout:     DefaultTimeout,
		log:         discard,
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Board returns the board of crop. It never fails: errors are logged and
// reported as an empty board.
func (l *Lookup) Board(ctx context.Context, crop string) *Board {
	crop = strings.ToUpper(strings.TrimSpace(crop))
	if l == nil || l.source == nil || crop == "" {
		return EmptyBoard()
	}

	ch := l.group.DoChan(crop, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, l.timeout)
			defer cancel()
		}
		rows, err := l.source.Fetch(fetchCtx, crop)
		if err != nil {
			return nil, err
		}
		return NewBoard(rows), nil
	})

	select {
	case <-ctx.Done():
		l.log.WithField("crop", crop).WithError(ctx.Err()).Warn("futures fetch abandoned")
		return EmptyBoard()
	case res := <-ch:
		if res.Err != nil {
			l.log.WithField("crop", crop).WithError(res.Err).Warn("failed to fetch futures")
			return EmptyBoard()
		}
		return res.Val.(*Board)
	}
}

// Request fetches the board of crop on behalf of purpose, such as the
// futures picker of one form. When another Request for the same purpose
// starts before this one completes, the older result is discarded and
// ErrStale is returned.
func (l *Lookup) Request(ctx context.Context, purpose, crop string) (*Board, error) {
	gen := l.begin(purpose)
	board := l.Board(ctx, crop)
	if !l.current(purpose, gen) {
		return nil, ErrStale
	}
	return board, nil
}

func (l *Lookup) begin(purpose string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generations[purpose]++
	return l.generations[purpose]
}

func (l *Lookup) current(purpose string, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[purpose] == gen
}
