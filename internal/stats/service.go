// Package stats is the usage domain: recording, querying and summarizing
// token usage, plus the local mock generator standing in for a metering
// backend.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/repositories/kvcache"
	"github.com/mkarpov/usagevault/internal/repositories/records"
)

// Summary aggregates usage over a day range.
type Summary struct {
	Days        int                      `json:"days"`
	TotalTokens uint64                   `json:"total_tokens"`
	TotalCost   float64                  `json:"total_cost"`
	Calls       int                      `json:"calls"`
	ByModel     map[string]uint64        `json:"by_model"`
	BySource    map[models.Source]uint64 `json:"by_source"`
	ByDay       map[string]uint64        `json:"by_day"`
}

// Service records and summarizes usage. Summaries are cached in the TTL
// cache; the cache is advisory, so every cache failure is logged and the
// summary recomputed from the log.
type Service struct {
	records records.Repository
	cache   kvcache.Repository
	ttl     time.Duration
	logger  logging.Logger
	now     func() time.Time
}

func NewService(recs records.Repository, cache kvcache.Repository, ttl time.Duration, logger logging.Logger) *Service {
	return &Service{
		records: recs,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Record validates and appends one usage record, filling derived fields.
func (s *Service) Record(ctx context.Context, rec *models.UsageRecord) error {
	if rec.Source == "" {
		rec.Source = models.SourceManual
	}
	if !rec.Source.Valid() {
		return fmt.Errorf("unknown source %q", rec.Source)
	}
	if rec.Model == "" {
		return errors.New("model is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec.Date = rec.Timestamp.Format("2006-01-02")
	if rec.Cost == 0 {
		rec.Cost = CostFor(rec.Model, rec.Tokens)
	}

	if err := s.records.Append(ctx, rec); err != nil {
		return common.WrapStorage(err)
	}
	s.invalidateSummaries(ctx)
	return nil
}

// RecordAll appends a batch, stopping at the first failure.
func (s *Service) RecordAll(ctx context.Context, recs []models.UsageRecord) (int, error) {
	for i := range recs {
		if err := s.Record(ctx, &recs[i]); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

// Query returns usage records matching the filter in insertion order.
func (s *Service) Query(ctx context.Context, f records.Filter) ([]models.UsageRecord, error) {
	recs, err := s.records.Query(ctx, f)
	if err != nil {
		return nil, common.WrapStorage(err)
	}
	return recs, nil
}

// Count returns the total number of records in the usage log, regardless
// of any filter.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.records.Count(ctx)
	if err != nil {
		return 0, common.WrapStorage(err)
	}
	return n, nil
}

func summaryCacheKey(days int) string {
	return fmt.Sprintf("summary:%dd", days)
}

// Summary aggregates the last days days of usage, serving a cached copy
// when one is fresh.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	if days < 1 {
		days = 1
	}

	key := summaryCacheKey(days)
	if payload, err := s.cache.Get(ctx, key, s.now()); err == nil {
		var sum Summary
		if jerr := json.Unmarshal(payload, &sum); jerr == nil {
			return &sum, nil
		}
		s.logger.Warn(ctx, "discarding corrupt cached summary", "key", key)
	} else if !errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "summary cache read failed", "key", key, "error", err)
	}

	sum, err := s.compute(ctx, days)
	if err != nil {
		return nil, err
	}

	if payload, jerr := json.Marshal(sum); jerr == nil {
		if cerr := s.cache.Set(ctx, key, payload, s.now().Add(s.ttl)); cerr != nil {
			s.logger.Warn(ctx, "summary cache write failed", "key", key, "error", cerr)
		}
	}
	return sum, nil
}

func (s *Service) compute(ctx context.Context, days int) (*Summary, error) {
	now := s.now()
	from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	recs, err := s.records.Query(ctx, records.Filter{FromDate: from})
	if err != nil {
		return nil, common.WrapStorage(err)
	}

	sum := &Summary{
		Days:     days,
		ByModel:  make(map[string]uint64),
		BySource: make(map[models.Source]uint64),
		ByDay:    make(map[string]uint64),
	}
	for _, r := range recs {
		sum.TotalTokens += r.Tokens
		sum.TotalCost += r.Cost
		sum.Calls++
		sum.ByModel[r.Model] += r.Tokens
		sum.BySource[r.Source] += r.Tokens
		sum.ByDay[r.Date] += r.Tokens
	}
	return sum, nil
}

// invalidateSummaries drops cached summaries after a write. Failure only
// means a stale summary may be served until its TTL runs out.
func (s *Service) invalidateSummaries(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn(ctx, "summary cache invalidation failed", "error", err)
	}
}
