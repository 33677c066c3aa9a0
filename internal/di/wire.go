//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ContractScan/internal/usecase"
	"ContractScan/pkg/config"
	"ContractScan/pkg/server"
)

var analysisSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideReportPublisher,
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideReportCache,
	ProvideClickHouseClient,
	ProvideClickHouseStore,
	ProvideMarketSource,
	ProvideSupplierRegistry,
	ProvideRoster,
	ProvideAnalyzer,
	ProvideAnalysisService,
)

// InitializeApp wires the long-running service: HTTP API, progress hub, Kafka consumer and dispatcher.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		analysisSet,
		ProvideHub,
		ProvideDispatcher,
		ProvideServerDelivery,
		ProvideKafkaConsumer,
		ProvideHealthChecks,
		ProvideAnalysisHandler,
		ProvideSupplierHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeAnalysis wires a one-shot analysis for the command line.
func InitializeAnalysis(cfg *config.Config) (*usecase.AnalysisService, func(), error) {
	wire.Build(
		analysisSet,
		ProvideCLIDelivery,
	)
	return nil, nil, nil
}
