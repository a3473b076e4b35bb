package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue("text")
	require.NoError(t, err)
	assert.Equal(t, "text", string(b))

	b, err = encodeValue(map[string]int{"rows": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":3}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.LessOrEqual(t, backoffWithJitter(0, 0, 1), 50*time.Millisecond)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(WithConsumerGroupID("g"))
	assert.Error(t, err)
}

type topicHandler struct{ topic string }

func (h topicHandler) Topic() string                        { return h.topic }
func (h topicHandler) Handle(context.Context, []byte) error { return nil }

func TestConsumerRegisterAndLocks(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerWorkers(0))
	require.NoError(t, err)
	assert.Equal(t, 1, c.cfg.WorkerCount)

	c.RegisterHandler(topicHandler{"a"})
	c.RegisterHandler(topicHandler{"a"})
	assert.Len(t, c.handlers, 1)

	l1 := c.partitionLock("a", 0)
	assert.Same(t, l1, c.partitionLock("a", 0))
	assert.NotSame(t, l1, c.partitionLock("a", 1))
}

func TestConsumerStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start())
}

func TestHeaderValue(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "source_topic", Value: []byte("snapshots")}}}
	assert.Equal(t, "snapshots", HeaderValue(msg, "source_topic"))
	assert.Equal(t, "", HeaderValue(msg, "missing"))
}

type panicHook struct{ NoopHook }

func (panicHook) BeforeHandle(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
	panic("bad hook")
}

func TestSafeBeforeRecoversPanic(t *testing.T) {
	_, _, data, err := safeBefore(panicHook{}, context.Background(), "t", kafka.Message{}, []byte("x"))
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_PANIC", he.Code)
	assert.Equal(t, "x", string(data))
}

func TestLoggingHookStampsContext(t *testing.T) {
	ctx, _, _, err := LoggingHook{}.BeforeHandle(context.Background(), "t", kafka.Message{Key: []byte("600519")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "600519", ctx.Value(CtxKey))
	_, ok := ctx.Value(CtxStartTime).(time.Time)
	assert.True(t, ok)
}
