package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

// DriverName names a component of merch value.
type DriverName string

const (
	DriverMerchGain       DriverName = "Merch Gain"
	DriverServiceFee      DriverName = "Service Fee"
	DriverCarry           DriverName = "Carry"
	DriverNetInitialBasis DriverName = "Net Initial Basis"
)

// MerchDriver is one row of the merch value breakdown. Service fees are
// reported negated so that the values of all drivers add up to the total.
type MerchDriver struct {
	RecordID     sales.ID      `json:"record_id"`
	SaleDate     *sales.Date   `json:"sale_date"`
	Action       sales.Action  `json:"action"`
	Quantity     sales.Bushels `json:"quantity"`
	FuturesMonth *sales.Month  `json:"futures_month"`
	Name         DriverName    `json:"name"`
	Value        sales.Price   `json:"value"`
}

// MerchValue is the per-bushel merchandising value of a lineage.
type MerchValue struct {
	Drivers []MerchDriver `json:"drivers"`
	Total   sales.Price   `json:"total"`
}

// Valuation holds the financial rollups of one lineage. AvgCashPrice and
// FinalSaleValue are nil when there is nothing priced yet.
type Valuation struct {
	OriginID       sales.ID       `json:"origin_id"`
	SaleType       sales.SaleType `json:"sale_type"`
	MerchValue     MerchValue     `json:"merch_value"`
	AvgCashPrice   *sales.Price   `json:"avg_cash_price"`
	FinalSaleValue *sales.Price   `json:"final_sale_value"`

	// PricedRecords lists the ids contributing to the average cash price and
	// the final sale value, in sale date order.
	PricedRecords []sales.ID `json:"priced_records"`
}

func (v *Valuation) clone() *Valuation {
	out := *v
	out.MerchValue.Drivers = append([]MerchDriver(nil), v.MerchValue.Drivers...)
	out.PricedRecords = append([]sales.ID(nil), v.PricedRecords...)
	out.AvgCashPrice = clonePrice(v.AvgCashPrice)
	out.FinalSaleValue = clonePrice(v.FinalSaleValue)
	return &out
}

func clonePrice(p *sales.Price) *sales.Price {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Valuate computes the valuation of the lineage rooted at originID. Results
// are recomputed whenever the lineage content changes.
func (l *Ledger) Valuate(ctx context.Context, originID sales.ID) (*Valuation, error) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.valuate %d", originID))
	defer timer.End()

	origin, ok := l.Get(originID)
	if !ok || !origin.IsOrigin() {
		return nil, &NotFoundError{ID: originID}
	}

	lineage := l.SortedLineage(originID)
	key, cacheable := l.cache.key(originID, lineage)
	if cacheable {
		if v, hit := l.cache.get(key); hit {
			return v, nil
		}
	}

	v := l.valuate(origin, lineage)
	if cacheable {
		l.cache.add(key, v)
	}
	return v.clone(), nil
}

// valuate computes the rollups over a lineage already sorted by sale date.
func (l *Ledger) valuate(origin sales.Record, lineage []sales.Record) *Valuation {
	v := &Valuation{
		OriginID:   origin.ID,
		SaleType:   origin.SaleType,
		MerchValue: merchValue(origin, lineage, l.actionIn(origin)),
	}

	if origin.SaleType == sales.Cash {
		v.PricedRecords = []sales.ID{origin.ID}
		if origin.CashPrice != nil {
			v.AvgCashPrice = clonePrice(origin.CashPrice)
			v.FinalSaleValue = sales.PriceOf(origin.CashPrice.Mul(decimal.NewFromInt(origin.Quantity.Int64())))
		}
		return v
	}

	var sum, total decimal.Decimal
	for _, r := range lineage {
		if !r.Status.IsSetLike() {
			continue
		}
		v.PricedRecords = append(v.PricedRecords, r.ID)
		cash := r.CashPrice.Value()
		sum = sum.Add(cash)
		total = total.Add(cash.Mul(decimal.NewFromInt(r.Quantity.Int64())))
	}
	if n := len(v.PricedRecords); n > 0 {
		v.AvgCashPrice = sales.PriceOf(sum.Div(decimal.NewFromInt(int64(n))).Round(sales.PricePlaces))
		v.FinalSaleValue = sales.PriceOf(total)
	}
	return v
}

// actionIn classifies records of origin's lineage without further lookups.
func (l *Ledger) actionIn(origin sales.Record) func(sales.Record) sales.Action {
	return func(r sales.Record) sales.Action {
		if r.ID == origin.ID {
			if origin.SaleType == sales.Cash {
				return sales.ActionSet
			}
			return sales.ActionCreated
		}
		if origin.SaleType != sales.Cash && r.Status == sales.StatusCreated {
			return sales.ActionCreated
		}
		return derivedAction(r.Status)
	}
}

// merchValue sums merch gain, carry, negated service fee and the Net
// Initial Basis of every record. Absent components are skipped; present
// zeros still appear as drivers.
func merchValue(origin sales.Record, lineage []sales.Record, action func(sales.Record) sales.Action) MerchValue {
	mv := MerchValue{Drivers: []MerchDriver{}}
	total := decimal.Zero

	for _, r := range lineage {
		driver := func(name DriverName, value decimal.Decimal) {
			mv.Drivers = append(mv.Drivers, MerchDriver{
				RecordID:     r.ID,
				SaleDate:     r.SaleDate,
				Action:       action(r),
				Quantity:     r.Quantity,
				FuturesMonth: r.FuturesMonth,
				Name:         name,
				Value:        *sales.PriceOf(value),
			})
			total = total.Add(value)
		}

		if r.MerchGain != nil {
			driver(DriverMerchGain, r.MerchGain.Decimal)
		}
		if r.ServiceFee != nil {
			driver(DriverServiceFee, r.ServiceFee.Neg())
		}
		if r.Carry != nil {
			driver(DriverCarry, r.Carry.Decimal)
		}
		if r.Status.IsSetLike() && origin.InitialBasisPrice != nil && r.BasisPrice != nil {
			driver(DriverNetInitialBasis, r.BasisPrice.Sub(origin.InitialBasisPrice.Decimal))
		}
	}

	mv.Total = *sales.PriceOf(total)
	return mv
}

// Summary is the one-line view of a lineage.
type Summary struct {
	Origin    sales.Record  `json:"origin"`
	Status    LineageStatus `json:"status"`
	Remaining int64         `json:"remaining"`
	Valuation *Valuation    `json:"valuation"`

	// ShowMerchValue is set when the lineage has priced quantity and a
	// non-zero merch value.
	ShowMerchValue bool `json:"show_merch_value"`

	// LastUpdated is the most recently touched record; Latest is the last
	// record by sale date.
	LastUpdated sales.Record `json:"last_updated"`
	Latest      sales.Record `json:"latest"`

	// ContractHolder is the HTA or Basis contract holder, or the delivery
	// location of a Cash sale. Empty when unknown.
	ContractHolder string `json:"contract_holder"`

	Records int `json:"records"`
}

// Summarize builds the summary of the lineage rooted at originID.
func (l *Ledger) Summarize(ctx context.Context, originID sales.ID) (*Summary, error) {
	v, err := l.Valuate(ctx, originID)
	if err != nil {
		return nil, err
	}

	origin, _ := l.Get(originID)
	lineage := l.SortedLineage(originID)
	status := l.lineageStatus(origin, lineage)

	s := &Summary{
		Origin:         origin.Clone(),
		Status:         status,
		Remaining:      l.Remaining(origin),
		Valuation:      v,
		ShowMerchValue: (origin.SaleType == sales.Cash || status.Set > 0) && !v.MerchValue.Total.IsZero(),
		Latest:         lineage[len(lineage)-1].Clone(),
		ContractHolder: contractHolder(origin),
		Records:        len(lineage),
	}

	last := lineage[0]
	for _, r := range lineage[1:] {
		if r.UpdatedAt.After(last.UpdatedAt) {
			last = r
		}
	}
	s.LastUpdated = last.Clone()

	return s, nil
}

// Summaries returns the summary of every lineage, ordered by origin id.
func (l *Ledger) Summaries(ctx context.Context) ([]*Summary, error) {
	timer := telemetry.StartTimer(ctx, "ledger.summaries")
	defer timer.End()

	origins := l.Origins()
	out := make([]*Summary, 0, len(origins))
	for _, o := range origins {
		s, err := l.Summarize(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func contractHolder(origin sales.Record) string {
	var p *string
	switch origin.SaleType {
	case sales.HTA:
		p = origin.HTAContractHolder
	case sales.Basis:
		p = origin.BasisContractHolder
	default:
		p = origin.DeliveryLocation
	}
	if p == nil {
		return ""
	}
	return *p
}
