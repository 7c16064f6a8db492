package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/planwright/planwright/internal/insight"
	"github.com/planwright/planwright/internal/port/cache"
	"github.com/planwright/planwright/internal/port/database"
)

// InsightService produces analytics reports for plans, with an in-process
// cache keyed by plan ID and version. A version bump naturally invalidates
// stale entries.
type InsightService struct {
	store    database.Store
	analyzer *insight.Analyzer
	cache    cache.Cache
	ttl      time.Duration
	log      *slog.Logger
}

// NewInsightService creates an InsightService. cache may be nil; reports are
// then computed on every request.
func NewInsightService(store database.Store, analyzer *insight.Analyzer,
	c cache.Cache, ttl time.Duration, log *slog.Logger) *InsightService {
	return &InsightService{
		store:    store,
		analyzer: analyzer,
		cache:    c,
		ttl:      ttl,
		log:      log,
	}
}

// Report returns the analytics report for the plan.
func (s *InsightService) Report(ctx context.Context, planID string) (*insight.Report, error) {
	p, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("insights:%s:%d", p.ID, p.Version)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var report insight.Report
			if err := json.Unmarshal(data, &report); err == nil {
				return &report, nil
			}
			// Corrupt entry; drop it and recompute.
			_ = s.cache.Delete(ctx, key)
		}
	}

	report := s.analyzer.Analyze(p)

	if s.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Debug("insight cache set failed", "key", key, "error", err)
			}
		}
	}
	return report, nil
}
