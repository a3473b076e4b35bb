//go:build wireinject
// +build wireinject

package di

import (
	"FundFlow/internal/usecase"
	"FundFlow/pkg/config"
	"FundFlow/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	// Infrastructure clients
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideFlowStorage,

	// Repositories and upstream services
	ProvideEastmoneyClient,
	ProvideCachedSource,
	ProvideSnapshotPublisher,
	ProvideLLMConfig,
	ProvideAnalyst,

	// Use cases
	ProvideProcessor,
	ProvideSnapshotArchiver,
	ProvideFundFlowUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,

		// Background refresh
		ProvideRefreshQueue,
		ProvideRefreshJob,
		ProvideRefreshScheduler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideKafkaConsumer,
		ProvideKafkaSnapshotHandler,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeUseCase wires the fund flow use case alone, for the command line.
func InitializeUseCase(cfg *config.Config) (*usecase.FundFlowUseCase, func(), error) {
	wire.Build(coreSet)
	return nil, nil, nil
}
