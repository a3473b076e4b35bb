package fundflow

import (
	"fmt"
	"time"

	"FundFlow/internal/domain/models"
	xlogger "FundFlow/pkg/logger"
)

// Processor runs moving averages, normalization and the recency window in
// that fixed order. It holds no per-call state and is safe for concurrent use.
type Processor struct {
	cfg    Config
	logger *xlogger.Logger
}

// NewProcessor validates cfg and builds a Processor.
func NewProcessor(cfg Config, logger *xlogger.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fundflow config: %w", err)
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Processor{cfg: cfg, logger: logger}, nil
}

// Config returns the pipeline settings.
func (p *Processor) Config() Config { return p.cfg }

// ResolveDays maps a non-positive request to the configured default.
func (p *Processor) ResolveDays(days int) int {
	if days <= 0 {
		return p.cfg.DefaultDays
	}
	return days
}

// Process turns a raw table into the processed view. The input is not
// modified and any stage failure aborts the run without a partial result.
func (p *Processor) Process(t models.FundFlowTable, days int) (models.FundFlowTable, error) {
	start := time.Now()
	days = p.ResolveDays(days)

	withMA, err := AddMovingAverages(t, p.cfg.Windows, p.cfg.Precision)
	if err != nil {
		return models.FundFlowTable{}, fmt.Errorf("moving averages: %w", err)
	}
	p.logger.Debug("fundflow.process moving averages added",
		xlogger.String("code", t.Code),
		xlogger.Int("rows", withMA.Len()),
	)

	scaled, err := NormalizeAmounts(withMA, p.cfg.Divisor, p.cfg.Precision)
	if err != nil {
		return models.FundFlowTable{}, fmt.Errorf("normalize amounts: %w", err)
	}

	out := SelectRecent(scaled, days)
	p.logger.Info("fundflow.process done",
		xlogger.String("code", t.Code),
		xlogger.Int("input_rows", t.Len()),
		xlogger.Int("output_rows", out.Len()),
		xlogger.Int("days", days),
		xlogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}
