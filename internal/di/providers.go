package di

import (
	"context"
	"fmt"
	"time"

	"FundFlow/internal/domain/repository"
	"FundFlow/internal/domain/service"
	"FundFlow/internal/handler/api"
	internalrepo "FundFlow/internal/repository"
	icache "FundFlow/internal/service/cache"
	"FundFlow/internal/service/eastmoney"
	"FundFlow/internal/service/llm"
	"FundFlow/internal/service/ratelimit"
	"FundFlow/internal/services/fundflow"
	"FundFlow/internal/usecase"
	pcache "FundFlow/pkg/cache"
	pkgch "FundFlow/pkg/clickhouse"
	"FundFlow/pkg/config"
	pkgkafka "FundFlow/pkg/kafka"
	applogger "FundFlow/pkg/logger"
	"FundFlow/pkg/metrics"
	"FundFlow/pkg/queue"
	"FundFlow/pkg/server"
	"FundFlow/pkg/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const initTimeout = 10 * time.Second

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. Error logs are aggregated and
// shipped to Kafka when log collection is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ErrorOutput: cfg.Log.ErrorOutput,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if !cfg.Log.Collect.Enabled || producer == nil {
		return l, func() {}, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   cfg.Log.Collect.Interval,
		CountThreshold: cfg.Log.Collect.Threshold,
		Topic:          cfg.Log.Collect.Topic,
		Publisher:      producer,
	})
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache builds the configured cache backend, or nil for none.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (pcache.Service, func(), error) {
	c := cfg.Cache
	newRedis := func() (*pcache.RedisCache, error) {
		return pcache.NewRedisCache(
			pcache.WithRedisHost(c.Redis.Host),
			pcache.WithRedisPort(c.Redis.Port),
			pcache.WithRedisPassword(c.Redis.Password),
			pcache.WithRedisDB(c.Redis.DB),
			pcache.WithRedisPrefix(c.Redis.Prefix),
		)
	}

	var svc pcache.Service
	switch c.Backend {
	case "none":
		l.Info("cache disabled")
		return nil, func() {}, nil
	case "file":
		fc, err := pcache.NewFileCache(pcache.WithFileDir(c.Dir), pcache.WithFileTTL(c.TTL))
		if err != nil {
			return nil, nil, fmt.Errorf("file cache: %w", err)
		}
		svc = fc
	case "memory":
		svc = pcache.NewMemoryCache(pcache.WithMemoryMaxSize(c.MemoryMaxSize), pcache.WithMemoryDefaultTTL(c.TTL))
	case "redis":
		rc, err := newRedis()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
	case "layered":
		rc, err := newRedis()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = pcache.NewLayeredCache(rc, pcache.WithLayeredMemorySize(c.MemoryMaxSize))
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", c.Backend)
	}
	l.Info("cache ready", applogger.String("backend", c.Backend), applogger.Duration("ttl", c.TTL))
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideEastmoneyClient creates the upstream fund flow client.
func ProvideEastmoneyClient(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *eastmoney.Client {
	return eastmoney.NewClient(eastmoney.Config{
		BaseURL:       cfg.Eastmoney.BaseURL,
		Timeout:       cfg.Eastmoney.Timeout,
		MaxRetries:    cfg.Eastmoney.MaxRetries,
		RetryDelay:    cfg.Eastmoney.RetryDelay,
		ThrottleDelay: cfg.Eastmoney.ThrottleDelay,
		RateLimit:     cfg.Eastmoney.RateLimit,
		Burst:         cfg.Eastmoney.Burst,
	}, l, m)
}

// ProvideCachedSource puts the cache in front of the upstream client.
func ProvideCachedSource(
	client *eastmoney.Client,
	c pcache.Service,
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
) *icache.CachedSource {
	return icache.NewCachedSource(client, c, cfg.Cache.TTL, l, m)
}

// ProvideProcessor creates the fund flow pipeline from the analysis settings.
func ProvideProcessor(cfg *config.Config, l *applogger.Logger) (*fundflow.Processor, error) {
	return fundflow.NewProcessor(fundflow.Config{
		DefaultDays: cfg.Analysis.DefaultDays,
		Windows:     cfg.Analysis.MAWindows,
		Precision:   cfg.Analysis.Precision,
		Divisor:     cfg.Analysis.Divisor,
	}, l)
}

// storageBackend is where archived rows live: the archive backend itself, or
// the consumer sink when snapshots travel through Kafka.
func storageBackend(cfg *config.Config) string {
	if cfg.Archive.Backend == usecase.ArchiveKafka {
		return cfg.Archive.Sink
	}
	return cfg.Archive.Backend
}

// ProvideFlowStorage opens the archive storage and creates its schema. It
// returns nil when archiving is disabled.
func ProvideFlowStorage(cfg *config.Config, l *applogger.Logger) (repository.FlowStorage, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var store repository.FlowStorage
	switch backend := storageBackend(cfg); backend {
	case usecase.ArchiveClickHouse:
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store = internalrepo.NewClickHouseFlowStorage(client, "")
	case usecase.ArchiveSQLite:
		client, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		store = internalrepo.NewSQLiteFlowStorage(client)
	default:
		return nil, func() {}, nil
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("storage schema: %w", err)
	}
	l.Info("archive storage ready", applogger.String("backend", storageBackend(cfg)))
	return store, func() { _ = store.Close() }, nil
}

// ProvideSnapshotPublisher creates the Kafka publisher when snapshots are archived through Kafka.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil || cfg.Archive.Backend != usecase.ArchiveKafka {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSnapshotArchiver routes fetched snapshots to the archive backend.
func ProvideSnapshotArchiver(
	pub repository.SnapshotPublisher,
	store repository.FlowStorage,
	m repository.Metrics,
	cfg *config.Config,
) (*usecase.SnapshotArchiver, error) {
	return usecase.NewSnapshotArchiver(pub, store, m, cfg.Archive.Backend)
}

// ProvideLLMConfig maps the LLM section onto the provider settings.
func ProvideLLMConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.ModelName(),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}
}

// ProvideAnalyst creates the configured LLM analyst, or nil when settings
// are missing; analysis routes then report what is missing.
func ProvideAnalyst(lc llm.Config, l *applogger.Logger) (service.Analyst, error) {
	if len(lc.Missing()) > 0 {
		l.Warn("llm analyst not configured", applogger.Strings("missing", lc.Missing()))
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	a, err := llm.NewAnalyst(ctx, lc, l)
	if err != nil {
		return nil, fmt.Errorf("llm analyst: %w", err)
	}
	l.Info("llm analyst ready", applogger.String("provider", a.Provider()), applogger.String("model", a.Model()))
	return a, nil
}

// ProvideFundFlowUseCase assembles the fund flow use case.
func ProvideFundFlowUseCase(
	source *icache.CachedSource,
	processor *fundflow.Processor,
	archiver *usecase.SnapshotArchiver,
	store repository.FlowStorage,
	analyst service.Analyst,
	lc llm.Config,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.FundFlowUseCase {
	return usecase.NewFundFlowUseCase(usecase.FundFlowDeps{
		Source:    source,
		Cache:     source,
		Processor: processor,
		Archiver:  archiver,
		Storage:   store,
		Analyst:   analyst,
		LLMConfig: lc,
		Metrics:   m,
		Logger:    l,
	})
}

// ProvideRateLimiter limits analysis requests per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.AnalysisRPS, cfg.Server.AnalysisBurst, 10*time.Minute)
}

// ProvideRefreshQueue creates the background refresh queue on the cache
// Redis server, or nil when refresh is disabled. Workers start with the app.
func ProvideRefreshQueue(cfg *config.Config, l *applogger.Logger) (*queue.Queue, func(), error) {
	if !cfg.Refresh.Enabled {
		return nil, func() {}, nil
	}
	r := cfg.Cache.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", r.Host, r.Port),
		Password: r.Password,
		DB:       r.DB,
	})
	q := queue.NewRedisQueue(client, queue.Config{
		Workers:    cfg.Refresh.Workers,
		RetryLimit: cfg.Refresh.RetryLimit,
		RetryDelay: cfg.Refresh.RetryDelay,
		KeyPrefix:  cfg.Refresh.KeyPrefix,
	}, l)
	return q, func() { _ = client.Close() }, nil
}

// ProvideRefreshJob reloads stocks taken off the refresh queue.
func ProvideRefreshJob(uc *usecase.FundFlowUseCase, l *applogger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(uc, l)
}

// ProvideRefreshScheduler queues refreshes, or is nil without a queue.
func ProvideRefreshScheduler(q *queue.Queue, uc *usecase.FundFlowUseCase, l *applogger.Logger) *usecase.RefreshScheduler {
	if q == nil {
		return nil
	}
	return usecase.NewRefreshScheduler(q, uc, l)
}

// ProvideHTTPHandler creates the Echo handler of the API.
func ProvideHTTPHandler(
	l *applogger.Logger,
	uc *usecase.FundFlowUseCase,
	rl *ratelimit.Limiter,
	refresh *usecase.RefreshScheduler,
	cfg *config.Config,
) *api.FundFlowEchoHandler {
	return api.NewFundFlowEchoHandler(l, uc, rl, refresh, api.HealthInfo{
		Title:   cfg.App.Title,
		Cache:   cfg.Cache.Backend,
		Archive: cfg.Archive.Backend,
		Refresh: refresh != nil,
	})
}

// ProvideKafkaConsumer creates the snapshot consumer, or nil when disabled or
// when there is no storage handler for it to feed.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, kh *usecase.KafkaSnapshotHandler) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	if kh == nil {
		l.Warn("kafka consumer enabled without archive storage, not created")
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.LoggingHook{Logger: l, Slow: time.Second})
	return consumer, nil
}

// ProvideKafkaSnapshotHandler stores consumed snapshots, or is nil without storage.
func ProvideKafkaSnapshotHandler(store repository.FlowStorage, m repository.Metrics, cfg *config.Config) *usecase.KafkaSnapshotHandler {
	if store == nil {
		return nil
	}
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.Topic, storageBackend(cfg), store, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.FundFlowEchoHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotHandler,
	q *queue.Queue,
	job *usecase.RefreshJob,
) *server.App {
	return server.New(cfg, l, h, consumer, kh, q, job)
}
