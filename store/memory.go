package store

import (
	"context"
	"sync"

	"github.com/robinvdvleuten/salesledger/sales"
)

// MemoryStore keeps the collection in memory. Saves copy the records so
// later changes by the caller are not visible.
type MemoryStore struct {
	mu      sync.Mutex
	records []sales.Record
	saves   int
	saveErr error
}

// NewMemoryStore creates a store seeded with records.
func NewMemoryStore(records ...sales.Record) *MemoryStore {
	return &MemoryStore{records: cloneRecords(records)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]sales.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records), nil
}

func (s *MemoryStore) Save(ctx context.Context, records []sales.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = cloneRecords(records)
	s.saves++
	return nil
}

// FailSaves makes every following Save return err. A nil err restores
// normal saving.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecords(records []sales.Record) []sales.Record {
	out := make([]sales.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
