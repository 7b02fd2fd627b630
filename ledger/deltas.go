package ledger

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/salesledger/sales"
)

// Delta Architecture
//
// Validators return deltas instead of mutating the collection. A delta is a
// plain struct describing the change, so it can be logged, inspected in
// tests, or built without being applied (see Ledger.Build).

// RecordDelta inserts a new record or replaces an existing one.
type RecordDelta struct {
	Mode     Mode
	Record   sales.Record
	Replaces bool
}

// String returns a human-readable representation of the delta.
func (d *RecordDelta) String() string {
	var sb strings.Builder
	if d.Replaces {
		sb.WriteString("replace")
	} else {
		sb.WriteString("insert")
	}
	fmt.Fprintf(&sb, " %s #%d %s %s", d.Mode, d.Record.ID, d.Record.SaleType, d.Record.Status)
	fmt.Fprintf(&sb, " %d bu.", d.Record.Quantity)
	if src, ok := d.Record.Source(); ok {
		fmt.Fprintf(&sb, " from #%d", src)
	}
	return sb.String()
}

// DeleteDelta removes a set of records.
type DeleteDelta struct {
	Target sales.ID
	IDs    []sales.ID
}

// String returns a human-readable representation of the delta.
func (d *DeleteDelta) String() string {
	ids := make([]string, len(d.IDs))
	for i, id := range d.IDs {
		ids[i] = "#" + id.String()
	}
	return fmt.Sprintf("delete #%d (%s)", d.Target, strings.Join(ids, ", "))
}

// applyRecordDelta inserts or replaces the delta's record and keeps the
// parent index in sync.
func (l *Ledger) applyRecordDelta(d *RecordDelta) {
	rec := d.Record.Clone()

	if i, ok := l.index[rec.ID]; ok && d.Replaces {
		old := l.records[i]
		l.records[i] = rec
		if !sameParent(old.ParentID, rec.ParentID) {
			l.unlinkChild(old)
			l.linkChild(rec)
		}
		return
	}

	l.index[rec.ID] = len(l.records)
	l.records = append(l.records, rec)
	l.lastID = max(l.lastID, rec.ID)
	l.linkChild(rec)
}

// applyDeleteDelta removes the delta's records and rebuilds the indexes.
func (l *Ledger) applyDeleteDelta(d *DeleteDelta) {
	drop := make(map[sales.ID]bool, len(d.IDs))
	for _, id := range d.IDs {
		drop[id] = true
	}

	kept := make([]sales.Record, 0, len(l.records))
	for _, r := range l.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}

	lastID := l.lastID
	l.reset(kept)
	l.lastID = max(l.lastID, lastID)
}

func (l *Ledger) linkChild(r sales.Record) {
	if r.ParentID != nil {
		l.children[*r.ParentID] = append(l.children[*r.ParentID], r.ID)
	}
}

func (l *Ledger) unlinkChild(r sales.Record) {
	if r.ParentID == nil {
		return
	}
	ids := l.children[*r.ParentID]
	for i, id := range ids {
		if id == r.ID {
			l.children[*r.ParentID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(l.children[*r.ParentID]) == 0 {
		delete(l.children, *r.ParentID)
	}
}

func sameParent(a, b *sales.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
