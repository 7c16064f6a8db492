// Package ristretto caches serialized insight reports in process, so a
// repeat insights request for an unchanged plan skips the analyzer.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/planwright/planwright/internal/config"
)

// avgReportBytes is a working estimate of one serialized report, used only
// to size the admission counters.
const avgReportBytes = 2048

// Cache is a cost-bounded in-process report cache. Cost is the byte length
// of the stored value, so the configured budget bounds resident memory
// rather than entry count.
type Cache struct {
	reports *ristretto.Cache[string, []byte]
}

// New sizes the cache from the configured megabyte budget.
func New(cfg config.Cache) (*Cache, error) {
	budget := cfg.L1MaxSizeMB << 20
	counters := budget / avgReportBytes * 10
	if counters < 10 {
		counters = 10
	}

	reports, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     budget,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{reports: reports}, nil
}

// Get returns the cached report for the key, if present.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	data, ok = c.reports.Get(key)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a report under the key for the given TTL, costed by its size.
// Admission is probabilistic; an entry the policy rejects is simply
// recomputed on the next request.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.reports.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete evicts the key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.reports.Del(key)
	return nil
}

// Close stops the cache's internal goroutines.
func (c *Cache) Close() {
	c.reports.Close()
}
