package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	"ContractScan/internal/handler/api"
	"ContractScan/internal/handler/ws"
	mid "ContractScan/internal/middleware"
	internalrepo "ContractScan/internal/repository"
	svccache "ContractScan/internal/service/cache"
	"ContractScan/internal/service/ratelimit"
	"ContractScan/internal/service/yahoo"
	"ContractScan/internal/usecase"
	pkgcache "ContractScan/pkg/cache"
	pkgch "ContractScan/pkg/clickhouse"
	"ContractScan/pkg/config"
	xhttp "ContractScan/pkg/http"
	pkgkafka "ContractScan/pkg/kafka"
	applogger "ContractScan/pkg/logger"
	"ContractScan/pkg/metrics"
	"ContractScan/pkg/server"
)

// CacheBackend is the configured cache store plus the Redis client behind it, if any.
type CacheBackend struct {
	Store pkgcache.Store
	Redis *pkgcache.RedisCache
}

// ProvideLogger builds the root logger. With Kafka and digest enabled, warnings and errors
// are also aggregated and shipped through pub.
func ProvideLogger(cfg *config.Config, pub *internalrepo.KafkaReportPublisher) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Digest.Enabled && pub != nil {
		l.AttachDigest(&applogger.DigestConfig{
			Interval:  cfg.Digest.Interval,
			Threshold: cfg.Digest.Threshold,
			Topic:     cfg.Digest.Topic,
			Publisher: pub,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache builds the memory, redis or layered (memory in front of redis) store.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (*CacheBackend, func(), error) {
	c := cfg.Cache
	newMemory := func(ttl time.Duration) *pkgcache.MemoryCache {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(c.MemoryMaxSize), pkgcache.WithMemoryDefaultTTL(ttl))
	}
	newRedis := func() (*pkgcache.RedisCache, error) {
		r, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(c.RedisAddr),
			pkgcache.WithRedisPassword(c.RedisPassword),
			pkgcache.WithRedisDB(c.RedisDB),
			pkgcache.WithRedisPrefix(c.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return r, nil
	}

	b := &CacheBackend{}
	switch c.Backend {
	case "redis":
		r, err := newRedis()
		if err != nil {
			return nil, nil, err
		}
		b.Store, b.Redis = r, r
	case "layered":
		r, err := newRedis()
		if err != nil {
			return nil, nil, err
		}
		b.Store, b.Redis = pkgcache.NewLayeredCache(newMemory(c.MemoryTTL), r, c.MemoryTTL), r
	default:
		b.Store = newMemory(c.TTL)
	}
	l.Info("cache ready", applogger.String("backend", c.Backend))
	cleanup := func() {
		if err := b.Store.Close(); err != nil {
			l.Warn("cache close failed", applogger.Error(err))
		}
	}
	return b, cleanup, nil
}

func ProvideReportCache(b *CacheBackend, cfg *config.Config) *svccache.ReportCache {
	return svccache.NewReportCache(b.Store, cfg.Cache.TTL)
}

// ProvideClickHouseClient connects only when ClickHouse is the source or an output.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Source.Type != "clickhouse" && !cfg.Output.ClickHouse {
		return nil, func() {}, nil
	}
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(c.Host),
		pkgch.WithPort(c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithAsyncInsert(c.AsyncInsert, c.WaitForAsync),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ddl := append([]string{"CREATE DATABASE IF NOT EXISTS " + c.Database}, internalrepo.ClickHouseSchema...)
	if err := client.InitSchema(ctx, ddl); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", c.Database))
	return client, func() { _ = client.Close() }, nil
}

func ProvideClickHouseStore(client *pkgch.Client, l *applogger.Logger) *internalrepo.ClickHouseStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseStore(client, l)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.KafkaReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Producer.ReportTopic)
}

// ProvideMarketSource selects the provider named by source.type.
func ProvideMarketSource(cfg *config.Config, store *internalrepo.ClickHouseStore, l *applogger.Logger) (domrepo.MarketDataSource, error) {
	switch cfg.Source.Type {
	case "csv":
		return internalrepo.NewCSVMarketSource(cfg.Source.CSVDir, cfg.Source.Lookahead, l), nil
	case "clickhouse":
		if store == nil {
			return nil, fmt.Errorf("clickhouse source: no client")
		}
		return store, nil
	default:
		client := yahoo.NewClient(ratelimit.New(), cfg.Source.RateLimit, cfg.Source.Period)
		return internalrepo.NewYahooMarketSource(client, cfg.Source.RateLimit, l), nil
	}
}

func ProvideSupplierRegistry(cfg *config.Config, l *applogger.Logger) *usecase.SupplierRegistry {
	return usecase.NewSupplierRegistry(internalrepo.NewCSVSupplierStore(cfg.Suppliers.Path), l)
}

// ProvideRoster extends the configured roster with registry suppliers when suppliers.tier is set.
func ProvideRoster(cfg *config.Config, registry *usecase.SupplierRegistry) (models.Roster, error) {
	if cfg.Suppliers.Tier == 0 {
		return cfg.Roster, nil
	}
	roster, err := registry.Roster(context.Background(), cfg.Roster, cfg.Suppliers.Tier)
	if err != nil {
		return models.Roster{}, fmt.Errorf("supplier roster: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return models.Roster{}, err
	}
	return roster, nil
}

func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideDispatcher queues report publishes in front of Kafka; nil when Kafka is disabled.
func ProvideDispatcher(cfg *config.Config, pub *internalrepo.KafkaReportPublisher, m domrepo.Metrics, l *applogger.Logger) *mid.ReportDispatcher {
	if pub == nil {
		return nil
	}
	return mid.NewReportDispatcher(pub, m, l,
		mid.WithBufferSize(cfg.Kafka.Producer.BufferSize),
		mid.WithMinInterval(time.Second),
	)
}

// Delivery is where a finished analysis goes besides the cache.
type Delivery struct {
	Publisher domrepo.ReportPublisher
	Progress  domrepo.ProgressNotifier
}

func ProvideServerDelivery(d *mid.ReportDispatcher, hub *ws.Hub) Delivery {
	out := Delivery{Progress: hub}
	if d != nil {
		out.Publisher = d
	}
	return out
}

// ProvideCLIDelivery publishes straight to Kafka; the process exits right after one run.
func ProvideCLIDelivery(pub *internalrepo.KafkaReportPublisher) (Delivery, func()) {
	if pub == nil {
		return Delivery{}, func() {}
	}
	return Delivery{Publisher: pub}, func() { _ = pub.Close() }
}

func ProvideAnalyzer(
	cfg *config.Config,
	roster models.Roster,
	source domrepo.MarketDataSource,
	m domrepo.Metrics,
	l *applogger.Logger,
	cache *svccache.ReportCache,
	store *internalrepo.ClickHouseStore,
	delivery Delivery,
) *usecase.ContractAnalyzer {
	opts := []usecase.AnalyzerOption{
		usecase.WithCache(cache),
		usecase.WithCollectionWindow(usecase.CollectionWindow{Lookahead: cfg.Source.Lookahead, Lookback: cfg.Source.Lookback}),
	}
	if cfg.Output.CSV {
		opts = append(opts, usecase.WithSinks(internalrepo.NewCSVArtifactSink(cfg.Output.Dir, l)))
	}
	if store != nil {
		opts = append(opts, usecase.WithArchive(store))
		if cfg.Output.ClickHouse {
			opts = append(opts, usecase.WithSinks(store))
		}
	}
	if delivery.Publisher != nil {
		opts = append(opts, usecase.WithPublisher(delivery.Publisher))
	}
	if delivery.Progress != nil {
		opts = append(opts, usecase.WithProgress(delivery.Progress))
	}
	return usecase.NewContractAnalyzer(roster, cfg.Analysis, source, m, l, opts...)
}

func ProvideAnalysisService(cfg *config.Config, a *usecase.ContractAnalyzer, cache *svccache.ReportCache, l *applogger.Logger) *usecase.AnalysisService {
	return usecase.NewAnalysisService(a, cache, cfg.Server.AnalysisTimeout, l)
}

// ProvideKafkaConsumer subscribes to analysis requests; nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, svc *usecase.AnalysisService, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithHook(pkgkafka.TraceHook())
	consumer.RegisterHandler(usecase.NewAnalysisRequestHandler(c.RequestTopic, svc, l))
	return consumer, nil
}

func ProvideHealthChecks(b *CacheBackend, ch *pkgch.Client) []api.HealthCheck {
	var checks []api.HealthCheck
	if b.Redis != nil {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: b.Redis.Ping})
	}
	if ch != nil {
		checks = append(checks, api.HealthCheck{Name: "clickhouse", Check: ch.Health})
	}
	return checks
}

func ProvideAnalysisHandler(svc *usecase.AnalysisService, l *applogger.Logger, checks []api.HealthCheck) *api.AnalysisHandler {
	return api.NewAnalysisHandler(svc, l, checks...)
}

func ProvideSupplierHandler(registry *usecase.SupplierRegistry, l *applogger.Logger) *api.SupplierHandler {
	return api.NewSupplierHandler(registry, l)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, analysis *api.AnalysisHandler, suppliers *api.SupplierHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{analysis, suppliers, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp orders components so the hub and dispatcher outlive the producers feeding them.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	hub *ws.Hub,
	dispatcher *mid.ReportDispatcher,
	consumer *pkgkafka.Consumer,
) *server.App {
	app := server.New(l, cfg.Server.ShutdownTimeout)
	app.Add("progress-hub", hub)
	if dispatcher != nil {
		app.Add("report-dispatcher", dispatcher)
	}
	app.Add("http", srv)
	if consumer != nil {
		app.Add("kafka-consumer", consumer)
	}
	app.OnClose("log-digest", func() error {
		l.DetachDigest()
		return nil
	})
	return app
}
