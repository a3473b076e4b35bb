package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FundFlow/internal/domain/models"
	domrepo "FundFlow/internal/domain/repository"
	pkgkafka "FundFlow/pkg/kafka"
)

// KafkaSnapshotHandler consumes published snapshots and writes them to storage.
type KafkaSnapshotHandler struct {
	topic   string
	backend string
	storage domrepo.FlowStorage
	metrics domrepo.Metrics
}

func NewKafkaSnapshotHandler(topic, backend string, storage domrepo.FlowStorage, metrics domrepo.Metrics) *KafkaSnapshotHandler {
	return &KafkaSnapshotHandler{topic: topic, backend: backend, storage: storage, metrics: metrics}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// Handle stores one snapshot message. Malformed payloads are reported as
// errors so the consumer can route them to its DLQ.
func (h *KafkaSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var t models.FundFlowTable
	if err := json.Unmarshal(b, &t); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if t.Code == "" {
		h.recordError("consumer_invalid")
		return fmt.Errorf("decode snapshot: missing code")
	}

	start := time.Now()
	if err := h.storage.StoreSnapshot(ctx, t); err != nil {
		h.recordError("consumer_store")
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordLatency("consumer_store", time.Since(start).Seconds())
		h.metrics.RecordArchived(h.backend, t.Len())
	}
	return nil
}

func (h *KafkaSnapshotHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
