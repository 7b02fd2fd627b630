package market

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/salesledger/sales"
)

// Quote is the price of one futures month.
type Quote struct {
	Month sales.Month  `json:"futures_month"`
	Price *sales.Price `json:"price"`
	AsOf  string       `json:"as_of"`
	Crop  string       `json:"crop"`
}

// Board holds one quote per futures month in ascending month order.
type Board struct {
	quotes  []Quote
	byMonth map[string]int
}

// NewBoard keeps the NORMAL contract rows, orders them by futures month and
// keeps the first row per crop and month. Rows with an unreadable month are
// dropped.
func NewBoard(rows []Row) *Board {
	normal := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.SpecificCommodity == NormalContract {
			normal = append(normal, r)
		}
	}
	slices.SortStableFunc(normal, func(a, b Row) int {
		return strings.Compare(a.MonthKey(), b.MonthKey())
	})

	b := &Board{byMonth: make(map[string]int)}
	seen := make(map[string]bool)
	for _, r := range normal {
		key := r.Crop + "_" + r.MonthKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		month, err := sales.NewMonth(r.FuturesMonth)
		if err != nil {
			continue
		}
		if _, dup := b.byMonth[month.String()]; dup {
			continue
		}
		b.byMonth[month.String()] = len(b.quotes)
		b.quotes = append(b.quotes, Quote{
			Month: *month,
			Price: r.LastPrice(),
			AsOf:  r.Date,
			Crop:  r.Crop,
		})
	}
	return b
}

// EmptyBoard returns a board without quotes.
func EmptyBoard() *Board {
	return &Board{byMonth: map[string]int{}}
}

// Len returns the number of quoted months.
func (b *Board) Len() int {
	return len(b.quotes)
}

// Quotes returns all quotes in month order.
func (b *Board) Quotes() []Quote {
	return append([]Quote(nil), b.quotes...)
}

// Quote returns the quote for month.
func (b *Board) Quote(month *sales.Month) (Quote, bool) {
	if month == nil {
		return Quote{}, false
	}
	i, ok := b.byMonth[month.String()]
	if !ok {
		return Quote{}, false
	}
	return b.quotes[i], true
}

// Price returns the last price quoted for month.
func (b *Board) Price(month *sales.Month) (*sales.Price, bool) {
	q, ok := b.Quote(month)
	if !ok || q.Price == nil {
		return nil, false
	}
	return q.Price, true
}

// Months returns the quoted months in order.
func (b *Board) Months() []sales.Month {
	out := make([]sales.Month, len(b.quotes))
	for i, q := range b.quotes {
		out[i] = q.Month
	}
	return out
}

// MonthsAfter returns the quotes strictly later than month, the months a
// record in month can be rolled into. A nil month returns every quote.
func (b *Board) MonthsAfter(month *sales.Month) []Quote {
	var out []Quote
	for _, q := range b.quotes {
		if month == nil || q.Month.After(month) {
			out = append(out, q)
		}
	}
	return out
}
