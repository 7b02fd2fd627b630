// Package web provides an HTTP API for the sales ledger.
//
// The server exposes the lineage summaries, lineage rows and valuations as
// JSON, accepts create, edit, Set, Roll and delete submissions, proxies the
// futures board and streams reload events to connected clients when the
// backing JSON file changes on disk.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/store"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

type Server struct {
	Port         int
	Host         string
	Version      string
	CommitSHA    string
	ReadOnly     bool
	WatchEnabled bool

	// Crop is the default crop of futures lookups.
	Crop string

	mu         sync.RWMutex
	ledger     *ledger.Ledger
	store      store.Store
	ledgerOpts []ledger.Option

	lookup  *market.Lookup
	log     logrus.FieldLogger
	metrics *metrics

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger requests and reloads are reported to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithLookup sets the futures lookup used for /api/futures and for
// reference prices of submissions.
func WithLookup(l *market.Lookup) Option {
	return func(s *Server) {
		s.lookup = l
	}
}

// WithLedgerOptions sets the options used when the ledger is (re)opened.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(s *Server) {
		s.ledgerOpts = opts
	}
}

// New creates a server over st. The ledger is loaded by Start, or
// immediately by Load.
func New(port int, st store.Store, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		Port:       port,
		Host:       "127.0.0.1",
		store:      st,
		log:        discard,
		sseClients: make(map[chan string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s:%d", s.Host, s.Port))
	defer timer.End()

	loadTimer := timer.Child("web.load_ledger")
	if err := s.Load(ctx); err != nil {
		loadTimer.End()
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	loadTimer.End()

	if s.WatchEnabled {
		if err := s.startWatcher(ctx); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	setupTimer := timer.Child("web.setup_router")
	handler := s.Handler()
	setupTimer.End()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sales", s.handleListSales)
	mux.HandleFunc("POST /api/sales", s.requireWritable(s.handleCreateSale))
	mux.HandleFunc("GET /api/sales/{id}", s.handleGetSale)
	mux.HandleFunc("PUT /api/sales/{id}", s.requireWritable(s.handleEditSale))
	mux.HandleFunc("DELETE /api/sales/{id}", s.requireWritable(s.handleDeleteSale))
	mux.HandleFunc("GET /api/sales/{id}/valuation", s.handleGetValuation)
	mux.HandleFunc("GET /api/sales/{id}/defaults", s.handleGetDefaults)
	mux.HandleFunc("POST /api/sales/{id}/set", s.requireWritable(s.handleAction(ledger.ModeSet)))
	mux.HandleFunc("POST /api/sales/{id}/roll", s.requireWritable(s.handleAction(ledger.ModeRoll)))
	mux.HandleFunc("GET /api/futures", s.handleGetFutures)
	mux.HandleFunc("GET /api/events", s.handleSSE)
	mux.Handle("GET /metrics", s.metrics.handler())

	return s.logRequests(mux)
}

// requireWritable is middleware that rejects write requests in read-only mode.
func (s *Server) requireWritable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ReadOnly {
			http.Error(w, "Server is in read-only mode", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// Load opens the ledger from the store, replacing the current one. A failed
// backfill save does not fail the load; the next write saves again.
// Caller must NOT hold the mutex - this method acquires it internally.
func (s *Server) Load(ctx context.Context) error {
	opts := append([]ledger.Option{ledger.WithLogger(s.log)}, s.ledgerOpts...)
	l, err := ledger.Open(ctx, s.store, opts...)
	var perr *ledger.PersistError
	if err != nil && (l == nil || !stdErrors.As(err, &perr)) {
		return err
	}

	s.mu.Lock()
	s.ledger = l
	s.mu.Unlock()
	return nil
}

// handleSSE handles Server-Sent Events connections for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, clientChan)
		s.sseMu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
			// Client buffer full, skip
		}
	}
}

func (s *Server) clientCount() int {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	return len(s.sseClients)
}
