package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Job handles one message type.
type Job interface {
	// Type is the message type routed to this job.
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Config tunes workers and retries.
type Config struct {
	Workers     int           // number of workers
	RetryLimit  int           // retries before a message is dead-lettered
	RetryDelay  time.Duration // base delay, multiplied by the attempt number
	RetryPoll   time.Duration // how often due retries are moved back
	PollTimeout time.Duration // how long a worker blocks waiting for a message
	KeyPrefix   string
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.RetryPoll <= 0 {
		c.RetryPoll = 5 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "fundflow:queue"
	}
}

// Message is the envelope stored in the queue.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func newMessage(msgType string, payload any, now time.Time) (Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{
		ID:         fmt.Sprintf("%d", now.UnixNano()),
		Type:       msgType,
		Payload:    b,
		EnqueuedAt: now,
	}, nil
}

// Decode unmarshals a job payload.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, errors.New("empty payload")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so the message goes straight to the dead letter list.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Stats counts the messages in each list.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}
