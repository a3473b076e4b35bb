package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/service/eastmoney"
	"FundFlow/internal/services/fundflow"
	"FundFlow/pkg/logger"
	"FundFlow/pkg/queue"
)

// RefreshJobType is the queue message type of a background refresh.
const RefreshJobType = "fundflow.refresh"

// ErrRefreshDisabled is returned when no refresh queue is configured.
var ErrRefreshDisabled = errors.New("refresh queue not configured")

// RefreshRequest asks for one stock to be fetched again.
type RefreshRequest struct {
	Code string `json:"code"`
	Days int    `json:"days"`
}

// Enqueuer accepts queue messages.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload any) error
}

// RefreshJob drops the cached snapshot of a stock and loads it again, which
// refills the cache and archives the fresh rows.
type RefreshJob struct {
	uc     *FundFlowUseCase
	logger *logger.Logger
}

func NewRefreshJob(uc *FundFlowUseCase, l *logger.Logger) *RefreshJob {
	if l == nil {
		l = logger.Nop()
	}
	return &RefreshJob{uc: uc, logger: l}
}

func (j *RefreshJob) Type() string { return RefreshJobType }

// Handle runs one refresh. Errors that a retry cannot fix are marked
// permanent.
func (j *RefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[RefreshRequest](payload)
	if err != nil {
		return queue.Permanent(err)
	}

	stock, err := j.uc.InvalidateCache(ctx, req.Code)
	if err != nil {
		if errors.Is(err, eastmoney.ErrInvalidCode) {
			return queue.Permanent(err)
		}
		// a stale entry only delays freshness; still reload
		j.logger.Warn("refresh invalidate failed", logger.String("code", req.Code), logger.Error(err))
	}

	res, err := j.uc.Load(ctx, req.Code, req.Days)
	if err != nil {
		if permanentLoadError(err) {
			return queue.Permanent(err)
		}
		return err
	}
	j.logger.Info("fund flow refreshed",
		logger.String("code", stock.FullCode),
		logger.Int("days", res.Days),
		logger.Int("rows", res.Table.Len()))
	return nil
}

func permanentLoadError(err error) bool {
	return errors.Is(err, eastmoney.ErrInvalidCode) ||
		errors.Is(err, eastmoney.ErrNoData) ||
		errors.Is(err, fundflow.ErrDuplicateDate) ||
		errors.Is(err, fundflow.ErrAlreadyNormalized)
}

// RefreshScheduler validates a ticker and queues its refresh.
type RefreshScheduler struct {
	q      Enqueuer
	uc     *FundFlowUseCase
	logger *logger.Logger
}

// NewRefreshScheduler returns nil when q is nil so callers can treat a
// missing queue as a disabled feature.
func NewRefreshScheduler(q Enqueuer, uc *FundFlowUseCase, l *logger.Logger) *RefreshScheduler {
	if q == nil {
		return nil
	}
	if l == nil {
		l = logger.Nop()
	}
	return &RefreshScheduler{q: q, uc: uc, logger: l}
}

// Schedule queues a refresh of raw. A nil scheduler reports ErrRefreshDisabled.
func (s *RefreshScheduler) Schedule(ctx context.Context, raw string, days int) (models.StockInfo, error) {
	if s == nil {
		return models.StockInfo{}, ErrRefreshDisabled
	}
	stock, err := s.uc.Resolve(raw)
	if err != nil {
		return models.StockInfo{}, err
	}
	days = s.uc.processor.ResolveDays(days)
	if err := s.q.Enqueue(ctx, RefreshJobType, RefreshRequest{Code: stock.Code, Days: days}); err != nil {
		s.uc.recordError("refresh")
		return stock, fmt.Errorf("schedule refresh %s: %w", stock.FullCode, err)
	}
	s.logger.Debug("refresh scheduled", logger.String("code", stock.FullCode), logger.Int("days", days))
	return stock, nil
}
