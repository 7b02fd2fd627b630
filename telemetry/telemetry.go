// Package telemetry provides hierarchical timing collection for operations.
// It allows tracking operation durations in a tree structure, for example
// loading the store, rebuilding the lineage index and valuing every lineage.
//
// Collectors are passed through context and can be enabled or disabled
// without changing function signatures.
//
// Example usage:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.StartTimer(ctx, "store.load")
//	defer timer.End()
//
//	collector.Report(os.Stderr)
package telemetry

import (
	"context"
	"io"
)

type contextKey int

const (
	collectorKey contextKey = iota
	timerKey
)

// Collector is the main interface for collecting telemetry data.
type Collector interface {
	// Start begins timing an operation and returns a Timer.
	Start(name string) Timer

	// Report writes the collected telemetry to w.
	Report(w io.Writer)
}

// Timer tracks a single operation's timing.
// Timers support hierarchical nesting via Child().
type Timer interface {
	// End stops the timer and records the duration.
	End()

	// Child creates a nested timer under this timer.
	Child(name string) Timer
}

// WithCollector adds a collector to a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector from context.
// If no collector is present, returns a collector that does nothing.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}

// WithRootTimer attaches the timer that subsequent StartTimer calls nest under.
func WithRootTimer(ctx context.Context, timer Timer) context.Context {
	return context.WithValue(ctx, timerKey, timer)
}

// StartTimer starts a timer nested under the context's root timer, or a
// top-level timer on the context's collector when no root timer is set.
func StartTimer(ctx context.Context, name string) Timer {
	if parent, ok := ctx.Value(timerKey).(Timer); ok {
		return parent.Child(name)
	}
	return FromContext(ctx).Start(name)
}
