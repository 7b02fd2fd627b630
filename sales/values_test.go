package sales

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func TestNewMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"2025-03", "2025-03", false},
		{"2025-03-14", "2025-03", false},
		{"2025-03-14T00:00:00Z", "2025-03", false},
		{"March", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := NewMonth(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestMonthOrdering(t *testing.T) {
	mar := MustMonth("2025-03")
	may := MustMonth("2025-05")

	assert.True(t, mar.Before(may))
	assert.True(t, may.After(mar))
	assert.False(t, mar.After(mar))
	assert.Equal(t, "Mar 2025", mar.Label())
}

func TestDate(t *testing.T) {
	d, err := NewDate("2025-01-15T08:30:00Z")
	assert.NoError(t, err)
	assert.Equal(t, "2025-01-15", d.String())

	assert.True(t, MustDate("2025-01-14").Before(d))
	assert.True(t, (*Date)(nil).IsZero())

	_, err = NewDate("15/01/2025")
	assert.Error(t, err)
}

func TestPrice(t *testing.T) {
	p := MustPrice("4.5")
	assert.Equal(t, "4.5000", p.String())

	data, err := p.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "4.5000", string(data))

	var q Price
	assert.NoError(t, q.UnmarshalJSON([]byte(`"-0.35"`)))
	assert.Equal(t, "-0.3500", q.String())
	assert.NoError(t, q.UnmarshalJSON([]byte(`0.1`)))
	assert.Equal(t, "0.1000", q.String())
	assert.Error(t, q.UnmarshalJSON([]byte(`"abc"`)))

	var missing *Price
	assert.True(t, missing.Value().IsZero())
	assert.True(t, missing.IsZero())
	assert.True(t, PriceOf(decimal.Zero).IsZero())
	assert.False(t, MustPrice("0.05").IsZero())
}

func TestNilMonthIsZero(t *testing.T) {
	var m *Month
	assert.True(t, m.IsZero())
	assert.True(t, (&Month{}).IsZero())
	assert.False(t, MustMonth("2025-03").IsZero())
}

func TestParseBushels(t *testing.T) {
	tests := []struct {
		input string
		want  Bushels
	}{
		{"5000", 5000},
		{"5,000", 5000},
		{"  250 ", 250},
		{"1500.9", 1500},
		{"-10", 0},
		{"", 0},
		{"NaN", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBushels(tt.input))
		})
	}
}
