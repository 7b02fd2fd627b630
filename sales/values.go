package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// PricePlaces is the number of fractional digits prices are serialized with.
	PricePlaces = 4
)

// Date is a calendar date in ISO 8601 format (YYYY-MM-DD). Sale dates are
// compared at day granularity.
type Date struct {
	time.Time
}

// NewDate parses a date string in YYYY-MM-DD format. Longer ISO timestamps
// are accepted and truncated to their date part.
func NewDate(s string) (*Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	return &Date{Time: t}, nil
}

// NewDateFromTime creates a Date from a time.Time, dropping the time of day.
func NewDateFromTime(t time.Time) *Date {
	y, m, d := t.Date()
	return &Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MustDate is like NewDate but panics on malformed input. Intended for tests
// and static data.
func MustDate(s string) *Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero returns true if the Date is nil or represents the zero time.
func (d *Date) IsZero() bool {
	if d == nil {
		return true
	}
	return d.Time.IsZero()
}

// Before reports whether d falls on an earlier day than other.
func (d *Date) Before(other *Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewDate(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Month identifies a futures or delivery month (YYYY-MM).
type Month struct {
	time.Time
}

// NewMonth parses a month token. Full ISO dates are truncated to their
// first seven characters, so "2025-03-14" yields 2025-03.
func NewMonth(s string) (*Month, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(monthLayout) {
		s = s[:len(monthLayout)]
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid month: %s", s)
	}
	return &Month{Time: t}, nil
}

// MustMonth is like NewMonth but panics on malformed input.
func MustMonth(s string) *Month {
	m, err := NewMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero returns true if the Month is nil or represents the zero time.
func (m *Month) IsZero() bool {
	if m == nil {
		return true
	}
	return m.Time.IsZero()
}

// Before reports whether m is an earlier month than other.
func (m *Month) Before(other *Month) bool {
	return m.Time.Before(other.Time)
}

// After reports whether m is a later month than other.
func (m *Month) After(other *Month) bool {
	return m.Time.After(other.Time)
}

// Label returns the short display form, e.g. "Mar 2025".
func (m Month) Label() string {
	return m.Format("Jan 2006")
}

func (m Month) String() string {
	return m.Format(monthLayout)
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewMonth(s)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// Price is a per-bushel dollar amount. It is serialized as a JSON number
// with four fractional digits.
type Price struct {
	decimal.Decimal
}

// NewPrice parses a decimal string.
func NewPrice(s string) (*Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return &Price{Decimal: d}, nil
}

// MustPrice is like NewPrice but panics on malformed input.
func MustPrice(s string) *Price {
	p, err := NewPrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PriceOf wraps a decimal as a Price.
func PriceOf(d decimal.Decimal) *Price {
	return &Price{Decimal: d}
}

// Value returns the decimal held by p, or zero when p is nil.
func (p *Price) Value() decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.Decimal
}

// IsZero returns true if p is nil or holds zero.
func (p *Price) IsZero() bool {
	return p == nil || p.Decimal.IsZero()
}

func (p Price) String() string {
	return p.StringFixed(PricePlaces)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.StringFixed(PricePlaces)), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid price %s: %w", data, err)
	}
	p.Decimal = d
	return nil
}

// Bushels is a non-negative quantity of grain.
type Bushels int64

// ParseBushels parses a quantity, accepting thousands separators and
// fractional input (truncated). Anything unparseable yields 0.
func ParseBushels(s string) Bushels {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampBushels(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clampBushels(int64(f))
}

// Int64 returns q as a plain integer.
func (q Bushels) Int64() int64 {
	return int64(q)
}

// UnmarshalJSON decodes numbers and strings leniently; null, empty and
// non-numeric values decode as 0.
func (q *Bushels) UnmarshalJSON(data []byte) error {
	if isEmptyJSON(data) {
		*q = 0
		return nil
	}
	*q = ParseBushels(string(bytes.Trim(data, `"`)))
	return nil
}

func clampBushels(n int64) Bushels {
	if n < 0 {
		return 0
	}
	return Bushels(n)
}
