package repository

import (
	"context"
	"time"

	"FundFlow/internal/domain/models"
)

// FundFlowSource returns the raw daily fund flow of a stock, amounts in yuan.
type FundFlowSource interface {
	FetchFundFlow(ctx context.Context, stock models.StockInfo) (models.FundFlowTable, error)
}

// SnapshotPublisher ships raw snapshots to a message broker.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, t models.FundFlowTable) error
	Close() error
}

// FlowStorage persists raw daily rows keyed by (code, date).
type FlowStorage interface {
	Init(ctx context.Context) error // ensure tables
	StoreSnapshot(ctx context.Context, t models.FundFlowTable) error
	Query(ctx context.Context, code string, from, to time.Time, limit int) ([]models.FundFlowRow, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, result string)
	RecordCache(result string)
	RecordArchived(backend string, rows int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordFragments(provider string, n int)
}
