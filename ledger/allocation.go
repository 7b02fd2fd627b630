package ledger

import (
	"github.com/robinvdvleuten/salesledger/sales"
)

// Remaining returns how many bushels of r are still available to Set or
// Roll: r's quantity minus every Set or Rolled record in its lineage that
// draws from r, clamped at zero. It always reads the current collection.
func (l *Ledger) Remaining(r sales.Record) int64 {
	remaining := r.Quantity.Int64() - l.Consumed(r)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingFromOrigin is Remaining for callers offering the origin itself as
// the source.
func (l *Ledger) RemainingFromOrigin(origin sales.Record) int64 {
	return l.Remaining(origin)
}

// RemainingFromRecord is Remaining for callers offering a derived record
// (typically a Roll) as the source.
func (l *Ledger) RemainingFromRecord(r sales.Record) int64 {
	return l.Remaining(r)
}

// Consumed sums the quantity Set or Rolled out of r. Nothing counts as
// consumed when r's origin cannot be resolved.
func (l *Ledger) Consumed(r sales.Record) int64 {
	origin := l.ResolveOrigin(r)
	if origin.ParentID != nil {
		return 0
	}

	var consumed int64
	for _, rec := range l.Lineage(origin.ID) {
		if rec.ID == r.ID || !rec.Status.Consumes() {
			continue
		}
		if src, ok := rec.Source(); ok && src == r.ID {
			consumed += rec.Quantity.Int64()
		}
	}
	return consumed
}

// CanSource reports whether r may be offered as the source of a new Set or
// Roll: its lineage is not Cash, r is the origin or a record that is not
// itself Set, and some quantity remains.
func (l *Ledger) CanSource(r sales.Record) bool {
	origin := l.ResolveOrigin(r)
	if origin.SaleType == sales.Cash {
		return false
	}
	if !r.IsOrigin() && r.Status.IsSetLike() {
		return false
	}
	return l.Remaining(r) > 0
}

// Sources returns every record of the lineage that can currently act as a
// source, ordered by sale date.
func (l *Ledger) Sources(originID sales.ID) []sales.Record {
	var out []sales.Record
	for _, r := range l.SortedLineage(originID) {
		if l.CanSource(r) {
			out = append(out, r)
		}
	}
	return out
}
