package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FundFlow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// store is the list/sorted-set surface the queue needs.
type store interface {
	ping(ctx context.Context) error
	push(ctx context.Context, key string, data []byte) error
	// pop returns nil without error when nothing arrived within timeout.
	pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	schedule(ctx context.Context, key string, data []byte, at time.Time) error
	// promote moves the members of key due at now onto the list dest.
	promote(ctx context.Context, key, dest string, now time.Time) (int, error)
	listLen(ctx context.Context, key string) (int64, error)
	setLen(ctx context.Context, key string) (int64, error)
}

type redisStore struct {
	client redis.UniversalClient
}

func (s redisStore) ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s redisStore) push(ctx context.Context, key string, data []byte) error {
	return s.client.LPush(ctx, key, data).Err()
}

func (s redisStore) pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := s.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

func (s redisStore) schedule(ctx context.Context, key string, data []byte, at time.Time) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: float64(at.Unix()), Member: data}).Err()
}

func (s redisStore) promote(ctx context.Context, key, dest string, now time.Time) (int, error) {
	due, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, m := range due {
		pipe := s.client.TxPipeline()
		pipe.ZRem(ctx, key, m)
		pipe.LPush(ctx, dest, m)
		if _, err := pipe.Exec(ctx); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (s redisStore) listLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s redisStore) setLen(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

// Queue is a Redis list backed job queue with delayed retries and a dead
// letter list.
type Queue struct {
	logger *logger.Logger
	cfg    Config
	store  store
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRedisQueue builds a queue on client. Workers only run after Start.
func NewRedisQueue(client redis.UniversalClient, cfg Config, l *logger.Logger) *Queue {
	return newQueue(redisStore{client: client}, cfg, l)
}

func newQueue(st store, cfg Config, l *logger.Logger) *Queue {
	if l == nil {
		l = logger.Nop()
	}
	cfg.setDefaults()
	return &Queue{
		logger: l,
		cfg:    cfg,
		store:  st,
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
}

// Register routes messages of job.Type() to job. Registering a type twice
// keeps the first job.
func (q *Queue) Register(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[job.Type()]; ok {
		q.logger.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	q.jobs[job.Type()] = job
	q.logger.Info("job registered", logger.String("type", job.Type()))
}

// Start pings the store and launches the workers and the retry loop.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := q.store.ping(pingCtx); err != nil {
		return fmt.Errorf("queue ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.wg.Add(1)
	go q.retryLoop(ctx)

	q.logger.Info("queue started",
		logger.Int("workers", q.cfg.Workers),
		logger.String("prefix", q.cfg.KeyPrefix))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs until ctx ends.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("queue stop: %w", ctx.Err())
	case <-done:
		q.logger.Info("queue stopped")
		return nil
	}
}

// Enqueue appends a message of msgType carrying payload as JSON.
func (q *Queue) Enqueue(ctx context.Context, msgType string, payload any) error {
	q.mu.RLock()
	_, ok := q.jobs[msgType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	msg, err := newMessage(msgType, payload, q.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.store.push(ctx, q.key("messages"), data); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Stats reads the list sizes.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.Pending, err = q.store.listLen(ctx, q.key("messages")); err != nil {
		return s, err
	}
	if s.Retrying, err = q.store.setLen(ctx, q.key("retry")); err != nil {
		return s, err
	}
	s.Dead, err = q.store.listLen(ctx, q.key("dlq"))
	return s, err
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	q.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for ctx.Err() == nil {
		data, err := q.store.pop(ctx, q.key("messages"), q.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			q.logger.Error("queue pop", logger.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if data == nil {
			continue
		}
		q.process(ctx, data)
	}
	q.logger.Debug("queue worker stopped", logger.Int("worker_id", id))
}

func (q *Queue) process(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		q.logger.Error("queue message unreadable", logger.Error(err))
		q.deadLetter(data)
		return
	}

	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		q.deadLetter(data)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		q.logger.Debug("job done",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID),
			logger.Duration("elapsed", time.Since(start)))
		return
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// shutting down: put it back untouched
		if perr := q.store.push(context.Background(), q.key("messages"), data); perr != nil {
			q.logger.Error("requeue on shutdown", logger.String("id", msg.ID), logger.Error(perr))
		}
		return
	}
	q.fail(msg, err)
}

func (q *Queue) fail(msg Message, err error) {
	q.logger.Warn("job failed",
		logger.String("type", msg.Type),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if IsPermanent(err) || msg.Attempts >= q.cfg.RetryLimit {
		q.logger.Error("job dead-lettered", logger.String("type", msg.Type), logger.String("id", msg.ID))
		if data, merr := json.Marshal(msg); merr == nil {
			q.deadLetter(data)
		}
		return
	}

	msg.Attempts++
	at := q.now().Add(time.Duration(msg.Attempts) * q.cfg.RetryDelay)
	data, merr := json.Marshal(msg)
	if merr != nil {
		q.logger.Error("marshal retry", logger.Error(merr))
		return
	}
	if serr := q.store.schedule(context.Background(), q.key("retry"), data, at); serr != nil {
		q.logger.Error("schedule retry", logger.String("id", msg.ID), logger.Error(serr))
	}
}

func (q *Queue) deadLetter(data []byte) {
	if err := q.store.push(context.Background(), q.key("dlq"), data); err != nil {
		q.logger.Error("dead letter push", logger.Error(err))
	}
}

func (q *Queue) retryLoop(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.cfg.RetryPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := q.store.promote(ctx, q.key("retry"), q.key("messages"), q.now())
			if err != nil && ctx.Err() == nil {
				q.logger.Error("promote retries", logger.Error(err))
			}
			if n > 0 {
				q.logger.Debug("retries promoted", logger.Int("count", n))
			}
		}
	}
}

func (q *Queue) key(name string) string {
	return q.cfg.KeyPrefix + ":" + name
}
