package server

import (
	"context"
	"os/signal"
	"syscall"

	"FundFlow/internal/handler/api"
	"FundFlow/internal/usecase"
	"FundFlow/pkg/config"
	xhttp "FundFlow/pkg/http"
	pkgkafka "FundFlow/pkg/kafka"
	applogger "FundFlow/pkg/logger"
	"FundFlow/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpHandler xhttp.Handler
	consumer    *pkgkafka.Consumer
	kh          *usecase.KafkaSnapshotHandler
	refreshQ    *queue.Queue
	refreshJob  *usecase.RefreshJob
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies. consumer, kh and
// refreshQ are optional; the consumer only runs when both it and kh are set.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotHandler,
	refreshQ *queue.Queue,
	refreshJob *usecase.RefreshJob,
) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		logger:      logger,
		httpHandler: httpHandler,
		consumer:    consumer,
		kh:          kh,
		refreshQ:    refreshQ,
		refreshJob:  refreshJob,
	}
}

// Run starts the application and blocks until ctx ends or the process is interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithCompression(a.cfg.Server.Compression, api.AnalysisPrefix),
		xhttp.WithMetrics(metricsPath, a.cfg.Server.SlowRequest),
	)

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start refresh workers
	if a.refreshQ != nil {
		a.refreshQ.Register(a.refreshJob)
		if err := a.refreshQ.Start(); err != nil {
			a.logger.Error("refresh queue error", applogger.Error(err))
			return err
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("fund flow service started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.String("archive", a.cfg.Archive.Backend))

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services. Clients and storage are closed by
// the cleanup returned from dependency injection.
func (a *App) shutdown() error {
	ctx := context.Background()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil && a.kh != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.refreshQ != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.refreshQ.Stop(stopCtx); err != nil {
			a.logger.Warn("refresh queue stop error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
