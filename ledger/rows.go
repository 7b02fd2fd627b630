package ledger

import (
	"github.com/robinvdvleuten/salesledger/sales"
)

// Row is a lineage record as shown in the lineage table.
type Row struct {
	Record    sales.Record `json:"record"`
	Action    sales.Action `json:"action"`
	Remaining int64        `json:"remaining"`
	CanSource bool         `json:"can_source"`
}

// Rows returns the lineage rooted at originID ordered by sale date, with
// each record's action, remaining quantity and whether it can be Set or
// Rolled from.
func (l *Ledger) Rows(originID sales.ID) ([]Row, error) {
	origin, ok := l.Get(originID)
	if !ok || !origin.IsOrigin() {
		return nil, &NotFoundError{ID: originID}
	}

	lineage := l.SortedLineage(originID)
	rows := make([]Row, len(lineage))
	for i, r := range lineage {
		rows[i] = Row{
			Record:    r.Clone(),
			Action:    l.Action(r),
			Remaining: l.Remaining(r),
			CanSource: l.CanSource(r),
		}
	}
	return rows, nil
}
