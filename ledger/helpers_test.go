package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/salesledger/sales"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memStore records saves so tests can assert persistence behavior.
type memStore struct {
	records []sales.Record
	saves   int
	saveErr error
}

func (s *memStore) Load(ctx context.Context) ([]sales.Record, error) {
	return s.records, nil
}

func (s *memStore) Save(ctx context.Context, records []sales.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.records = records
	return nil
}

func testConfig() *Config {
	cfg := NewConfig()
	cfg.Now = func() time.Time { return fixedNow }
	return cfg
}

func newTestLedger(t *testing.T, records ...sales.Record) (*Ledger, *memStore) {
	t.Helper()
	st := &memStore{}
	l := New(records, WithConfig(testConfig()), WithStore(st))
	return l, st
}

func strp(s string) *string {
	return &s
}

// htaOrigin returns the fields of a valid 10,000 bu. HTA sale.
func htaOrigin() Fields {
	return Fields{
		SaleType:           sales.HTA,
		SaleDate:           sales.MustDate("2025-01-10"),
		Quantity:           10000,
		FuturesMonth:       sales.MustMonth("2025-03"),
		NearbyFuturesMonth: sales.MustMonth("2025-03"),
		FuturesPrice:       sales.MustPrice("4.40"),
		InitialBasisPrice:  sales.MustPrice("-0.30"),
		HTAContractHolder:  strp("ADM"),
	}
}

// cashOrigin returns the fields of a valid 5,000 bu. Cash sale.
func cashOrigin() Fields {
	return Fields{
		SaleType:         sales.Cash,
		SaleDate:         sales.MustDate("2025-01-15"),
		Quantity:         5000,
		FuturesMonth:     sales.MustMonth("2025-03"),
		DeliveryMonth:    sales.MustMonth("2025-04"),
		DeliveryLocation: strp("Elevator"),
		FuturesPrice:     sales.MustPrice("4.75"),
		BasisPrice:       sales.MustPrice("-0.25"),
	}
}

// setFields returns the fields of a Set of an HTA sale.
func setFields(date string) Fields {
	return Fields{
		SaleDate:         sales.MustDate(date),
		FuturesMonth:     sales.MustMonth("2025-03"),
		DeliveryMonth:    sales.MustMonth("2025-04"),
		DeliveryLocation: strp("Elevator"),
		FuturesPrice:     sales.MustPrice("4.40"),
		BasisPrice:       sales.MustPrice("-0.20"),
	}
}

// rollFields returns the fields of a Roll into month at futures price.
func rollFields(date, month, futures string) Fields {
	return Fields{
		SaleDate:     sales.MustDate(date),
		FuturesMonth: sales.MustMonth(month),
		FuturesPrice: sales.MustPrice(futures),
	}
}

func mustSubmit(t *testing.T, l *Ledger, fields Fields, ac ActionContext) sales.Record {
	t.Helper()
	rec, err := l.Submit(context.Background(), fields, ac)
	assert.NoError(t, err)
	return rec
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationErrors
	assert.True(t, errors.As(err, &verr), "expected *ValidationErrors, got %T: %v", err, err)
	names := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.FieldErrors() {
		names = append(names, fe.GetField())
	}
	return names
}
