package usecase

import (
	"context"
	"fmt"
	"time"

	"FundFlow/internal/domain/models"
	drepo "FundFlow/internal/domain/repository"
)

const (
	ArchiveNone       = "none"
	ArchiveKafka      = "kafka"
	ArchiveClickHouse = "clickhouse"
	ArchiveSQLite     = "sqlite"
)

// SnapshotArchiver routes fetched raw snapshots to the configured backend.
type SnapshotArchiver struct {
	pub     drepo.SnapshotPublisher
	store   drepo.FlowStorage
	metrics drepo.Metrics
	backend string
}

// NewSnapshotArchiver creates an archiver. pub is required for the kafka
// backend and store for clickhouse and sqlite.
func NewSnapshotArchiver(
	pub drepo.SnapshotPublisher,
	store drepo.FlowStorage,
	metrics drepo.Metrics,
	backend string,
) (*SnapshotArchiver, error) {
	switch backend {
	case "", ArchiveNone:
		backend = ArchiveNone
	case ArchiveKafka:
		if pub == nil {
			return nil, fmt.Errorf("archive backend %s: publisher is required", backend)
		}
	case ArchiveClickHouse, ArchiveSQLite:
		if store == nil {
			return nil, fmt.Errorf("archive backend %s: storage is required", backend)
		}
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", backend)
	}
	return &SnapshotArchiver{pub: pub, store: store, metrics: metrics, backend: backend}, nil
}

func (a *SnapshotArchiver) Backend() string { return a.backend }

// Enabled reports whether snapshots leave the process.
func (a *SnapshotArchiver) Enabled() bool { return a != nil && a.backend != ArchiveNone }

// Archive sends t to the backend.
func (a *SnapshotArchiver) Archive(ctx context.Context, t models.FundFlowTable) error {
	if !a.Enabled() || t.Len() == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch a.backend {
	case ArchiveKafka:
		err = a.pub.PublishSnapshot(ctx, t)
	default:
		err = a.store.StoreSnapshot(ctx, t)
	}

	if err != nil {
		a.record(func(m drepo.Metrics) { m.RecordError("archive") })
		return fmt.Errorf("archive %s to %s: %w", t.Code, a.backend, err)
	}

	a.record(func(m drepo.Metrics) {
		m.RecordArchived(a.backend, t.Len())
		m.RecordLatency("archive", time.Since(start).Seconds())
	})
	return nil
}

func (a *SnapshotArchiver) record(f func(drepo.Metrics)) {
	if a.metrics != nil {
		f(a.metrics)
	}
}
