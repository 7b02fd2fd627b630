package ledger

import (
	"context"
	"fmt"

	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

// Check reports stored records that break ledger invariants. Records
// written through Submit never do; loaded data may. Errors are returned in
// storage order as *IntegrityError.
func (l *Ledger) Check(ctx context.Context) []error {
	timer := telemetry.StartTimer(ctx, "ledger.check")
	defer timer.End()

	var errs []error
	report := func(r sales.Record, format string, args ...any) {
		errs = append(errs, &IntegrityError{RecordID: r.ID, Message: fmt.Sprintf(format, args...)})
	}

	for _, r := range l.records {
		if !r.SaleType.Valid() {
			report(r, "unknown sale type %q", r.SaleType)
		}

		if !r.IsOrigin() {
			origin, ok := l.Get(*r.ParentID)
			switch {
			case !ok:
				report(r, "parent %d does not exist", *r.ParentID)
			case !origin.IsOrigin():
				report(r, "parent %d is not an origin", origin.ID)
			default:
				if r.SaleType != origin.SaleType {
					report(r, "sale type %s differs from origin sale type %s", r.SaleType, origin.SaleType)
				}
				if origin.SaleType == sales.Cash && r.Status.Consumes() {
					report(r, "cash sales cannot be %s", r.Status)
				}
			}

			if src, ok := r.Source(); ok {
				source, found := l.Get(src)
				switch {
				case !found:
					report(r, "source %d does not exist", src)
				case l.ResolveOrigin(source).ID != *r.ParentID:
					report(r, "source %d belongs to another lineage", src)
				}
			}
		}

		if consumed := l.Consumed(r); consumed > r.Quantity.Int64() {
			report(r, "%s bu. consumed from a quantity of %s bu.", commas(consumed), commas(r.Quantity.Int64()))
		}
	}

	if len(errs) > 0 {
		l.log.WithField("problems", len(errs)).Warn("Ledger check found problems")
	}
	return errs
}
