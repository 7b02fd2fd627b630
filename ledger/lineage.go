package ledger

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/salesledger/sales"
)

// ResolveOrigin returns the origin of r's lineage. Parentless records are
// their own origin. When the parent cannot be found r is returned unchanged.
func (l *Ledger) ResolveOrigin(r sales.Record) sales.Record {
	if r.ParentID == nil {
		return r
	}
	if origin, ok := l.Get(*r.ParentID); ok {
		return origin
	}
	return r
}

// Lineage returns the origin with id originID plus every record whose
// parent is that origin, in storage order. Callers sort as needed.
func (l *Ledger) Lineage(originID sales.ID) []sales.Record {
	var out []sales.Record
	if origin, ok := l.Get(originID); ok {
		out = append(out, origin)
	}
	for _, id := range l.children[originID] {
		out = append(out, l.records[l.index[id]])
	}
	return out
}

// SortBySaleDate orders records by sale date ascending. Undated records
// come first and ties keep id order.
func SortBySaleDate(records []sales.Record) {
	slices.SortStableFunc(records, func(a, b sales.Record) int {
		switch {
		case a.SaleDate.IsZero() && b.SaleDate.IsZero():
			return cmp.Compare(a.ID, b.ID)
		case a.SaleDate.IsZero():
			return -1
		case b.SaleDate.IsZero():
			return 1
		case !a.SaleDate.Equal(b.SaleDate.Time):
			return a.SaleDate.Compare(b.SaleDate.Time)
		default:
			return cmp.Compare(a.ID, b.ID)
		}
	})
}

// SortedLineage returns the lineage of originID ordered by sale date.
func (l *Ledger) SortedLineage(originID sales.ID) []sales.Record {
	records := l.Lineage(originID)
	SortBySaleDate(records)
	return records
}

// SourceOf returns the record r drew its quantity from, if it exists.
func (l *Ledger) SourceOf(r sales.Record) (sales.Record, bool) {
	id, ok := r.Source()
	if !ok {
		return sales.Record{}, false
	}
	return l.Get(id)
}
