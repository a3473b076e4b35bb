package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FundFlow/internal/domain/models"
	drepo "FundFlow/internal/domain/repository"
	"FundFlow/internal/domain/service"
	"FundFlow/internal/service/eastmoney"
	"FundFlow/internal/service/llm"
	"FundFlow/internal/services/fundflow"
	"FundFlow/pkg/logger"
)

// ErrHistoryDisabled is returned by History when no storage is configured.
var ErrHistoryDisabled = errors.New("history storage not configured")

// CacheInvalidator drops a cached snapshot.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, stock models.StockInfo) error
}

// FundFlowUseCase loads, processes and analyzes the fund flow of one stock.
type FundFlowUseCase struct {
	source    drepo.FundFlowSource
	cache     CacheInvalidator
	processor *fundflow.Processor
	archiver  *SnapshotArchiver
	storage   drepo.FlowStorage
	analyst   service.Analyst
	llmCfg    llm.Config
	metrics   drepo.Metrics
	logger    *logger.Logger
}

type FundFlowDeps struct {
	Source    drepo.FundFlowSource
	Cache     CacheInvalidator
	Processor *fundflow.Processor
	Archiver  *SnapshotArchiver
	Storage   drepo.FlowStorage
	Analyst   service.Analyst // nil when the provider is not configured
	LLMConfig llm.Config
	Metrics   drepo.Metrics
	Logger    *logger.Logger
}

func NewFundFlowUseCase(d FundFlowDeps) *FundFlowUseCase {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &FundFlowUseCase{
		source:    d.Source,
		cache:     d.Cache,
		processor: d.Processor,
		archiver:  d.Archiver,
		storage:   d.Storage,
		analyst:   d.Analyst,
		llmCfg:    d.LLMConfig,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// Resolve normalizes a raw ticker.
func (u *FundFlowUseCase) Resolve(raw string) (models.StockInfo, error) {
	return eastmoney.ResolveStock(raw, u.logger)
}

// Load fetches the raw series, archives it and returns the processed view of
// the last days trading days.
func (u *FundFlowUseCase) Load(ctx context.Context, raw string, days int) (*models.FundFlowResult, error) {
	stock, err := u.Resolve(raw)
	if err != nil {
		return nil, err
	}

	table, err := u.source.FetchFundFlow(ctx, stock)
	if err != nil {
		u.recordError("fetch")
		return nil, fmt.Errorf("load %s: %w", stock.FullCode, err)
	}
	if table.Len() == 0 {
		u.recordError("fetch")
		return nil, fmt.Errorf("load %s: %w", stock.FullCode, eastmoney.ErrNoData)
	}

	if err := u.archiver.Archive(ctx, table); err != nil {
		u.logger.Warn("snapshot archive failed", logger.String("code", stock.Code), logger.Error(err))
	}

	start := time.Now()
	days = u.processor.ResolveDays(days)
	processed, err := u.processor.Process(table, days)
	if err != nil {
		u.recordError("pipeline")
		return nil, fmt.Errorf("process %s: %w", stock.FullCode, err)
	}
	if u.metrics != nil {
		u.metrics.RecordLatency("pipeline", time.Since(start).Seconds())
	}

	return &models.FundFlowResult{
		Stock:    stock,
		Name:     table.Name,
		Days:     days,
		Table:    processed,
		Records:  processed.Records(),
		Columns:  models.DisplayColumns(processed.Columns),
		Summary:  fundflow.Summarize(processed),
		Charts:   fundflow.ChartSeries(processed),
		Markdown: fundflow.RenderMarkdown(processed),
	}, nil
}

// Analyze loads the table and streams a model analysis of its markdown. The
// channels follow service.Analyst.Stream.
func (u *FundFlowUseCase) Analyze(ctx context.Context, raw string, days int) (*models.FundFlowResult, <-chan string, <-chan error, error) {
	if u.analyst == nil {
		return nil, nil, nil, u.notConfigured()
	}
	res, err := u.Load(ctx, raw, days)
	if err != nil {
		return nil, nil, nil, err
	}

	prompt := llm.BuildAnalysisPrompt(res.Stock, res.Table.Len(), res.Markdown)
	u.logger.Debug("analysis prompt", logger.String("code", res.Stock.Code), logger.String("prompt", prompt.User))

	fragments, errs := u.analyst.Stream(ctx, prompt)
	counted, relayedErrs := u.countFragments(ctx, fragments, errs)
	return res, counted, relayedErrs, nil
}

// countFragments relays a stream while counting it. Once ctx is done the
// remaining fragments are drained so the producer can finish.
func (u *FundFlowUseCase) countFragments(ctx context.Context, in <-chan string, inErrs <-chan error) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		n := 0
		for f := range in {
			select {
			case out <- f:
				n++
			case <-ctx.Done():
			}
		}
		close(out)
		if u.metrics != nil {
			u.metrics.RecordFragments(u.analyst.Provider(), n)
		}
		if err := <-inErrs; err != nil {
			u.recordError("llm")
			errs <- err
		}
	}()
	return out, errs
}

// LLMStatus reports the analyst configuration and, when ping is set, whether
// the provider answers.
func (u *FundFlowUseCase) LLMStatus(ctx context.Context, ping bool) models.LLMStatus {
	st := models.LLMStatus{
		Provider:   u.llmCfg.Provider,
		Model:      u.llmCfg.Model,
		Configured: u.analyst != nil,
		Missing:    u.llmCfg.Missing(),
	}
	if !ping || u.analyst == nil {
		return st
	}
	reachable := true
	if err := u.analyst.Ping(ctx); err != nil {
		reachable = false
		st.Error = err.Error()
		u.logger.Warn("llm ping failed", logger.Error(err))
	}
	st.Reachable = &reachable
	return st
}

// History returns archived raw rows of a stock, most recent first.
func (u *FundFlowUseCase) History(ctx context.Context, raw string, from, to time.Time, limit int) (models.StockInfo, []models.FundFlowRow, error) {
	stock, err := u.Resolve(raw)
	if err != nil {
		return models.StockInfo{}, nil, err
	}
	if u.storage == nil {
		return stock, nil, ErrHistoryDisabled
	}
	rows, err := u.storage.Query(ctx, stock.Code, from, to, limit)
	if err != nil {
		u.recordError("history")
		return stock, nil, fmt.Errorf("history %s: %w", stock.FullCode, err)
	}
	return stock, rows, nil
}

// StorageHealth checks the history storage.
func (u *FundFlowUseCase) StorageHealth(ctx context.Context) error {
	if u.storage == nil {
		return ErrHistoryDisabled
	}
	return u.storage.Health(ctx)
}

// InvalidateCache drops the cached snapshot of raw.
func (u *FundFlowUseCase) InvalidateCache(ctx context.Context, raw string) (models.StockInfo, error) {
	stock, err := u.Resolve(raw)
	if err != nil {
		return models.StockInfo{}, err
	}
	if u.cache == nil {
		return stock, nil
	}
	return stock, u.cache.Invalidate(ctx, stock)
}

func (u *FundFlowUseCase) notConfigured() error {
	missing := u.llmCfg.Missing()
	if len(missing) == 0 {
		return llm.ErrNotConfigured
	}
	return fmt.Errorf("%w: missing %s", llm.ErrNotConfigured, strings.Join(missing, ", "))
}

func (u *FundFlowUseCase) recordError(kind string) {
	if u.metrics != nil {
		u.metrics.RecordError(kind)
	}
}
