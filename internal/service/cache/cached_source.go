package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FundFlow/internal/domain/models"
	drepo "FundFlow/internal/domain/repository"
	pcache "FundFlow/pkg/cache"
	"FundFlow/pkg/logger"
)

const keyPrefix = "fundflow"

// CachedSource serves raw fund flow tables from a cache and falls back to
// the wrapped source on a miss. Cache failures never fail a fetch.
type CachedSource struct {
	next    drepo.FundFlowSource
	cache   pcache.Service
	ttl     time.Duration
	logger  *logger.Logger
	metrics drepo.Metrics
}

var _ drepo.FundFlowSource = (*CachedSource)(nil)

// NewCachedSource wraps next. A nil cache disables caching.
func NewCachedSource(next drepo.FundFlowSource, c pcache.Service, ttl time.Duration, log *logger.Logger, metrics drepo.Metrics) *CachedSource {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedSource{next: next, cache: c, ttl: ttl, logger: log, metrics: metrics}
}

// Key is the cache key of a stock snapshot.
func Key(stock models.StockInfo) string {
	return pcache.GenerateKeyWithParams(keyPrefix, stock.Code, stock.Market)
}

func (s *CachedSource) FetchFundFlow(ctx context.Context, stock models.StockInfo) (models.FundFlowTable, error) {
	if s.cache == nil {
		return s.next.FetchFundFlow(ctx, stock)
	}

	key := Key(stock)
	var cached models.FundFlowTable
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil && cached.Len() > 0:
		s.record("hit")
		s.logger.Debug("fund flow cache hit", logger.String("key", key))
		return cached, nil
	case err != nil && !errors.Is(err, pcache.ErrCacheMiss):
		s.record("error")
		s.logger.Warn("fund flow cache read failed", logger.String("key", key), logger.Error(err))
	default:
		s.record("miss")
	}

	table, err := s.next.FetchFundFlow(ctx, stock)
	if err != nil {
		return models.FundFlowTable{}, err
	}
	if err := s.cache.Set(ctx, key, table, s.ttl); err != nil {
		s.logger.Warn("fund flow cache write failed", logger.String("key", key), logger.Error(err))
	}
	return table, nil
}

// Invalidate drops the cached snapshot of stock.
func (s *CachedSource) Invalidate(ctx context.Context, stock models.StockInfo) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, Key(stock)); err != nil {
		return fmt.Errorf("invalidate %s: %w", stock.FullCode, err)
	}
	return nil
}

func (s *CachedSource) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordCache(result)
	}
}
