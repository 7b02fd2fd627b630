package ledger

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/robinvdvleuten/salesledger/sales"
)

// Action classifies r for display from its stored status and its position
// in the lineage.
func (l *Ledger) Action(r sales.Record) sales.Action {
	origin := l.ResolveOrigin(r)
	isOrigin := origin.ID == r.ID

	if origin.SaleType == sales.Cash {
		if isOrigin {
			return sales.ActionSet
		}
		return derivedAction(r.Status)
	}

	if isOrigin {
		return sales.ActionCreated
	}
	if r.Status == sales.StatusCreated {
		return sales.ActionCreated
	}
	return derivedAction(r.Status)
}

func derivedAction(status sales.Status) sales.Action {
	switch {
	case status.IsSetLike():
		return sales.ActionSet
	case status == sales.StatusRolled:
		return sales.ActionRolled
	default:
		return sales.ActionPending
	}
}

// LineageStatus is the aggregate position of a lineage.
type LineageStatus struct {
	// Fully is set for Cash lineages and lineages whose Set quantity has
	// reached the origin quantity.
	Fully bool `json:"fully_set"`

	Set     int64 `json:"set"`
	Pending int64 `json:"pending"`
	Rolled  int64 `json:"rolled"`
}

// String renders the status, e.g. "Set: 4,000 bu. / Pending: 6,000 bu.".
// A zero quantity renders as "--".
func (s LineageStatus) String() string {
	if s.Fully {
		return "Set"
	}
	if s.Set > 0 {
		return fmt.Sprintf("Set: %s / Pending: %s", bushels(s.Set), bushels(s.Pending))
	}
	parts := []string{fmt.Sprintf("Pending: %s", bushels(s.Pending))}
	if s.Rolled > 0 {
		parts = append(parts, fmt.Sprintf("Rolled: %s", bushels(s.Rolled)))
	}
	return strings.Join(parts, " / ")
}

func bushels(n int64) string {
	if n == 0 {
		return "--"
	}
	return commas(n) + " bu."
}

func commas(n int64) string {
	return humanize.Comma(n)
}

// LineageStatus computes the aggregate status of the lineage rooted at
// originID.
func (l *Ledger) LineageStatus(originID sales.ID) (LineageStatus, error) {
	origin, ok := l.Get(originID)
	if !ok || !origin.IsOrigin() {
		return LineageStatus{}, &NotFoundError{ID: originID}
	}
	return l.lineageStatus(origin, l.Lineage(originID)), nil
}

func (l *Ledger) lineageStatus(origin sales.Record, lineage []sales.Record) LineageStatus {
	var set, rolled int64
	for _, r := range lineage {
		if r.ID == origin.ID {
			continue
		}
		switch {
		case r.Status.IsSetLike():
			set += r.Quantity.Int64()
		case r.Status == sales.StatusRolled:
			rolled += r.Quantity.Int64()
		}
	}

	total := origin.Quantity.Int64()
	status := LineageStatus{Set: set, Rolled: rolled}

	switch {
	case origin.SaleType == sales.Cash || set >= total:
		status.Fully = true
		if origin.SaleType == sales.Cash {
			status.Set = total
		}
	case set > 0:
		status.Pending = total - set
	default:
		status.Pending = total
	}
	return status
}
