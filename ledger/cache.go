package ledger

import (
	"encoding/json"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/robinvdvleuten/salesledger/sales"
)

// valuationCache memoizes valuations by a hash of the lineage content. Any
// change to a record of the lineage yields a different key, so entries never
// need explicit invalidation. A nil cache stores nothing.
type valuationCache struct {
	entries *lru.Cache[uint64, *Valuation]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// lineageKey is the hashed projection of a lineage. Records are projected
// to their JSON encoding since decimal values keep their state unexported.
type lineageKey struct {
	OriginID sales.ID
	Records  []string
}

func newValuationCache(size int) *valuationCache {
	if size <= 0 {
		return nil
	}
	entries, err := lru.New[uint64, *Valuation](size)
	if err != nil {
		return nil
	}
	return &valuationCache{entries: entries}
}

func (c *valuationCache) key(originID sales.ID, lineage []sales.Record) (uint64, bool) {
	if c == nil {
		return 0, false
	}

	k := lineageKey{OriginID: originID, Records: make([]string, len(lineage))}
	for i, r := range lineage {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, false
		}
		k.Records[i] = string(data)
	}

	hash, err := hashstructure.Hash(k, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, false
	}
	return hash, true
}

func (c *valuationCache) get(key uint64) (*Valuation, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v.clone(), true
}

func (c *valuationCache) add(key uint64, v *Valuation) {
	c.entries.Add(key, v)
}

// CacheStats reports valuation cache hits and misses since the ledger was
// created. Both are zero when caching is disabled.
func (l *Ledger) CacheStats() (hits, misses uint64) {
	if l.cache == nil {
		return 0, 0
	}
	return l.cache.hits.Load(), l.cache.misses.Load()
}
