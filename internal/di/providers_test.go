package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"FundFlow/internal/usecase"
	"FundFlow/pkg/config"
	applogger "FundFlow/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestProvideKafkaConsumer(t *testing.T) {
	cfg := testConfig(t)
	l := applogger.Nop()
	kh := &usecase.KafkaSnapshotHandler{}

	consumer, err := ProvideKafkaConsumer(cfg, l, kh)
	require.NoError(t, err)
	assert.Nil(t, consumer, "disabled")

	cfg.Kafka.Consumer.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	consumer, err = ProvideKafkaConsumer(cfg, l, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer, "no storage to feed")

	consumer, err = ProvideKafkaConsumer(cfg, l, kh)
	require.NoError(t, err)
	require.NotNil(t, consumer)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, consumer.Stop(ctx))
}
