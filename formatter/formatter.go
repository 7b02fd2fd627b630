// Package formatter renders ledger views as aligned plain-text tables: the
// lineage summary list, the rows of one lineage, a valuation breakdown and
// the futures board. Colors come from an output.Styles and are applied
// after alignment, so styled and plain output line up identically.
package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/output"
	"github.com/robinvdvleuten/salesledger/sales"
)

const (
	// DefaultIndentation is the number of spaces tables are indented by.
	DefaultIndentation = 0

	// ColumnGap is the number of spaces between table columns.
	ColumnGap = 2

	// Placeholder is shown for values that are not available.
	Placeholder = "--"
)

// Formatter renders ledger views.
type Formatter struct {
	// Indentation is prepended to every table line.
	Indentation int

	// Styles colors the output. Defaults to plain text.
	Styles *output.Styles

	// Now is the reference time for relative timestamps.
	Now func() time.Time
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithIndentation sets the table indentation.
func WithIndentation(indent int) Option {
	return func(f *Formatter) {
		f.Indentation = indent
	}
}

// WithStyles sets the styles used for colors.
func WithStyles(s *output.Styles) Option {
	return func(f *Formatter) {
		f.Styles = s
	}
}

// WithNow sets the clock used for "updated 2 hours ago" columns.
func WithNow(now func() time.Time) Option {
	return func(f *Formatter) {
		f.Now = now
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		Indentation: DefaultIndentation,
		Now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.Styles == nil {
		f.Styles = output.Plain(io.Discard)
	}
	return f
}

// FormatSummaries writes one line per lineage.
func (f *Formatter) FormatSummaries(w io.Writer, summaries []*ledger.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, f.Styles.Dim("No sales recorded."))
		return err
	}

	t := newTable(
		column{title: "ID", align: alignRight},
		column{title: "Type"},
		column{title: "Date"},
		column{title: "Quantity", align: alignRight},
		column{title: "Status"},
		column{title: "Remaining", align: alignRight},
		column{title: "Avg Cash", align: alignRight},
		column{title: "Sale Value", align: alignRight},
		column{title: "Merch Value", align: alignRight},
		column{title: "Holder"},
		column{title: "Updated"},
	)

	for _, s := range summaries {
		o := s.Origin
		v := s.Valuation

		merch := plain(Placeholder)
		if s.ShowMerchValue {
			merch = f.money(&v.MerchValue.Total)
		}
		holder := s.ContractHolder
		if holder == "" {
			holder = Placeholder
		}

		t.add(
			styled(ID(o.ID), f.Styles.Keyword),
			plain(string(o.SaleType)),
			plain(Date(o.SaleDate)),
			styled(Bushels(o.Quantity.Int64()), f.Styles.Quantity),
			plain(s.Status.String()),
			f.remaining(s.Remaining),
			f.money(v.AvgCashPrice),
			plain(Dollars(v.FinalSaleValue)),
			merch,
			plain(holder),
			styled(f.updated(s.LastUpdated.UpdatedAt), f.Styles.Dim),
		)
	}
	return t.render(w, f.Indentation, f.Styles.Keyword)
}

// FormatLineage writes the rows of one lineage in the order given.
func (f *Formatter) FormatLineage(w io.Writer, rows []ledger.Row) error {
	t := newTable(
		column{title: "ID", align: alignRight},
		column{title: "Date"},
		column{title: "Action"},
		column{title: "Quantity", align: alignRight},
		column{title: "Remaining", align: alignRight},
		column{title: "Futures Month"},
		column{title: "Futures", align: alignRight},
		column{title: "Basis", align: alignRight},
		column{title: "Cash", align: alignRight},
		column{title: "Delivery"},
		column{title: "Source", align: alignRight},
	)

	for _, row := range rows {
		r := row.Record
		remaining := plain(Placeholder)
		if row.CanSource {
			remaining = f.remaining(row.Remaining)
		}
		source := Placeholder
		if !r.IsOrigin() {
			if id, ok := r.Source(); ok {
				source = ID(id)
			}
		}

		t.add(
			styled(ID(r.ID), f.Styles.Keyword),
			plain(Date(r.SaleDate)),
			styled(string(row.Action), f.Styles.Action),
			styled(Bushels(r.Quantity.Int64()), f.Styles.Quantity),
			remaining,
			plain(Month(r.FuturesMonth)),
			plain(Price(r.FuturesPrice)),
			plain(Price(basisOf(r))),
			plain(Price(r.CashPrice)),
			plain(Month(r.DeliveryMonth)),
			plain(source),
		)
	}
	return t.render(w, f.Indentation, f.Styles.Keyword)
}

// FormatValuation writes the valuation of a lineage followed by its merch
// value drivers.
func (f *Formatter) FormatValuation(w io.Writer, v *ledger.Valuation) error {
	lines := []string{
		fmt.Sprintf("Average cash price: %s", f.styledMoney(v.AvgCashPrice)),
		fmt.Sprintf("Final sale value:   %s", Dollars(v.FinalSaleValue)),
		fmt.Sprintf("Merch value:        %s", f.styledMoney(&v.MerchValue.Total)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(v.MerchValue.Drivers) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	t := newTable(
		column{title: "ID", align: alignRight},
		column{title: "Date"},
		column{title: "Action"},
		column{title: "Quantity", align: alignRight},
		column{title: "Futures Month"},
		column{title: "Driver"},
		column{title: "Value", align: alignRight},
	)
	for _, d := range v.MerchValue.Drivers {
		value := d.Value
		t.add(
			styled(ID(d.RecordID), f.Styles.Keyword),
			plain(Date(d.SaleDate)),
			styled(string(d.Action), f.Styles.Action),
			styled(Bushels(d.Quantity.Int64()), f.Styles.Quantity),
			plain(Month(d.FuturesMonth)),
			plain(string(d.Name)),
			f.money(&value),
		)
	}
	return t.render(w, f.Indentation, f.Styles.Keyword)
}

// FormatQuotes writes the futures board.
func (f *Formatter) FormatQuotes(w io.Writer, quotes []market.Quote) error {
	if len(quotes) == 0 {
		_, err := fmt.Fprintln(w, f.Styles.Dim("No futures available."))
		return err
	}

	t := newTable(
		column{title: "Month"},
		column{title: "Last", align: alignRight},
		column{title: "As Of"},
	)
	for _, q := range quotes {
		month := q.Month
		t.add(
			plain(Month(&month)),
			plain(Price(q.Price)),
			styled(q.AsOf, f.Styles.Dim),
		)
	}
	return t.render(w, f.Indentation, f.Styles.Keyword)
}

// FormatRecord returns a one-line description of r, used as error context.
func FormatRecord(r sales.Record, action sales.Action) string {
	parts := []string{ID(r.ID), Date(r.SaleDate), string(r.SaleType), string(action), Bushels(r.Quantity.Int64())}
	if r.FuturesMonth != nil {
		parts = append(parts, Month(r.FuturesMonth))
	}
	return strings.Join(parts, " ")
}

func (f *Formatter) money(p *sales.Price) cell {
	if p == nil {
		return plain(Placeholder)
	}
	value := p.Decimal
	return styled(Money(p), func(s string) string {
		return f.Styles.Money(s, value)
	})
}

func (f *Formatter) styledMoney(p *sales.Price) string {
	c := f.money(p)
	if c.style == nil {
		return c.text
	}
	return c.style(c.text)
}

func (f *Formatter) remaining(n int64) cell {
	if n == 0 {
		return styled(Placeholder, f.Styles.Dim)
	}
	return styled(Bushels(n), f.Styles.Quantity)
}

func (f *Formatter) updated(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return humanize.RelTime(t, f.Now(), "ago", "from now")
}

// basisOf returns the basis shown for r: the basis price, falling back to
// the initial basis of an HTA origin.
func basisOf(r sales.Record) *sales.Price {
	if r.BasisPrice != nil {
		return r.BasisPrice
	}
	return r.InitialBasisPrice
}

// ID renders a record id as "#3".
func ID(id sales.ID) string {
	return "#" + strconv.FormatInt(int64(id), 10)
}

// Bushels renders a quantity with thousands separators, e.g. "10,000 bu.".
func Bushels(n int64) string {
	return humanize.Comma(n) + " bu."
}

// Date renders a sale date, or the placeholder when missing.
func Date(d *sales.Date) string {
	if d.IsZero() {
		return Placeholder
	}
	return d.String()
}

// Month renders a month as "Mar 2025", or the placeholder when missing.
func Month(m *sales.Month) string {
	if m == nil {
		return Placeholder
	}
	return m.Label()
}

// Price renders a per-bushel price with four decimals.
func Price(p *sales.Price) string {
	if p == nil {
		return Placeholder
	}
	return p.String()
}

// Money renders a per-bushel amount in dollars, e.g. "$4.2000" or
// "-$0.0300".
func Money(p *sales.Price) string {
	if p == nil {
		return Placeholder
	}
	sign := ""
	if p.IsNegative() {
		sign = "-"
	}
	return sign + "$" + p.Abs().StringFixed(sales.PricePlaces)
}

// Dollars renders a total in dollars and cents with thousands separators,
// e.g. "$42,000.00".
func Dollars(p *sales.Price) string {
	if p == nil {
		return Placeholder
	}
	sign := ""
	if p.IsNegative() {
		sign = "-"
	}
	whole, cents, _ := strings.Cut(p.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "$" + p.Abs().StringFixed(2)
	}
	return sign + "$" + humanize.Comma(n) + "." + cents
}
