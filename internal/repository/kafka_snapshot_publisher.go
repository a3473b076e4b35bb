package repository

import (
	"context"
	"fmt"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/repository"
	pkgkafka "FundFlow/pkg/kafka"
)

// KafkaSnapshotPublisher publishes each raw snapshot as one JSON message keyed
// by stock code.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ repository.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)

func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) PublishSnapshot(ctx context.Context, t models.FundFlowTable) error {
	if err := rawOnly(t); err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(t.Code), t); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", t.Code, err)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
