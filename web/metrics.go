package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// metrics holds the collectors of one server. Each server has its own
// registry so several servers can live in one process.
type metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	reloads   prometheus.Counter
}

func newMetrics(s *Server) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesledger_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesledger_mutations_total",
			Help: "Applied mutations by kind.",
		}, []string{"kind"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesledger_reloads_total",
			Help: "Ledger reloads triggered by store file changes.",
		}),
	}

	records := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "salesledger_records",
		Help: "Records in the ledger.",
	}, func() float64 {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.ledger == nil {
			return 0
		}
		return float64(s.ledger.Len())
	})
	cacheHits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "salesledger_valuation_cache_hits_total",
		Help: "Valuations served from the cache.",
	}, func() float64 {
		hits, _ := s.cacheStats()
		return float64(hits)
	})
	cacheMisses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "salesledger_valuation_cache_misses_total",
		Help: "Valuations computed because the cache had no entry.",
	}, func() float64 {
		_, misses := s.cacheStats()
		return float64(misses)
	})
	clients := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "salesledger_event_clients",
		Help: "Connected event stream clients.",
	}, func() float64 {
		return float64(s.clientCount())
	})

	m.registry.MustRegister(m.requests, m.duration, m.mutations, m.reloads,
		records, cacheHits, cacheMisses, clients)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (s *Server) cacheStats() (uint64, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return 0, 0
	}
	return s.ledger.CacheStats()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logRequests records metrics for every request and logs it at debug
// level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed,
		}).Debug("request")
	})
}
