package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/internal/handler/api"
	internalrepo "TradeQuorum/internal/repository"
	"TradeQuorum/internal/service/feed"
	"TradeQuorum/internal/services/agents"
	"TradeQuorum/internal/services/consensus"
	"TradeQuorum/internal/services/correlation"
	"TradeQuorum/internal/services/portfolio"
	"TradeQuorum/internal/services/regime"
	"TradeQuorum/internal/services/risk"
	"TradeQuorum/internal/usecase"
	"TradeQuorum/pkg/cache"
	pkgch "TradeQuorum/pkg/clickhouse"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
	pkgkafka "TradeQuorum/pkg/kafka"
	"TradeQuorum/pkg/logger"
	"TradeQuorum/pkg/metrics"
	"TradeQuorum/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates the audit-store client, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
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
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideDecisionStore creates the durable audit trail, noop when disabled.
func ProvideDecisionStore(chClient *pkgch.Client) (repository.DecisionStore, error) {
	if chClient == nil {
		return internalrepo.NoopDecisionStore{}, nil
	}
	store := internalrepo.NewClickHouseDecisionStore(chClient.DB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideKafkaProducer creates the event-bus producer, nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
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
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideOutcomeConsumer creates the closed-trade outcome consumer, nil when
// Kafka is disabled or no outcomes topic is configured.
func ProvideOutcomeConsumer(cfg *config.Config, store service.PerformanceStore, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.OutcomesTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewOutcomeHandler(cfg.Kafka.OutcomesTopic, store, m))
	return consumer, nil
}

// ProvideEventPublisher creates the alert-event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NoopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCacheService creates the performance-history cache: Redis-backed
// with a memory front when configured, memory only otherwise.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("tradequorum"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvidePerformanceStore creates the per-agent performance history store.
func ProvidePerformanceStore(c cache.Service) service.PerformanceStore {
	return internalrepo.NewCachedPerformanceStore(c)
}

// ProvideWeightTracker creates the performance-weighted agent weights.
func ProvideWeightTracker(cfg *config.Config, store service.PerformanceStore, log *logger.Logger) *consensus.WeightTracker {
	return consensus.NewWeightTracker(cfg, store, log)
}

// ProvideConsensusEngine creates the vote aggregator.
func ProvideConsensusEngine(cfg *config.Config, tracker *consensus.WeightTracker, log *logger.Logger) *consensus.Engine {
	return consensus.NewEngine(cfg, tracker, log)
}

// ProvideRegimeClassifier creates the market regime classifier.
func ProvideRegimeClassifier(cfg *config.Config) *regime.Classifier {
	return regime.New(cfg)
}

// ProvideCorrelationAnalyzer creates the concentration-risk analyzer.
func ProvideCorrelationAnalyzer(cfg *config.Config) *correlation.Analyzer {
	return correlation.New(cfg)
}

// ProvideLimitState creates the shared daily risk counters.
func ProvideLimitState() *risk.LimitState {
	return risk.NewLimitState()
}

// ProvideKillSwitch creates the system halt flag.
func ProvideKillSwitch() service.KillSwitch {
	return risk.NewSwitch()
}

// ProvideBreakerRegistry creates the per-operation circuit breakers. State
// changes are counted and published asynchronously so a slow event bus
// never stalls a cycle.
func ProvideBreakerRegistry(cfg *config.Config, publisher repository.EventPublisher, m repository.Metrics, log *logger.Logger) *risk.BreakerRegistry {
	blog := log.With("breaker")
	hook := func(operation string, from, to risk.BreakerState, failures int) {
		m.RecordBreakerTransition(operation, string(to))
		blog.Warn("breaker transition",
			logger.String("operation", operation),
			logger.String("from", string(from)),
			logger.String("to", string(to)),
			logger.Int("failures", failures))
		ev := models.BreakerTransitionEvent{
			Operation: operation,
			From:      string(from),
			To:        string(to),
			Failures:  failures,
			Timestamp: time.Now().UTC(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.PublishBreakerTransition(ctx, ev); err != nil {
				blog.Warn("breaker event publish failed", logger.Error(err))
			}
		}()
	}
	return risk.NewBreakerRegistry(cfg, hook)
}

// ProvideRiskGuard creates the layered risk policy.
func ProvideRiskGuard(cfg *config.Config, limits *risk.LimitState, kill service.KillSwitch) *risk.Guard {
	return risk.NewGuard(cfg, limits, kill)
}

// ProvideMarketStream creates the live trade feed.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	return feed.NewClient(cfg, log)
}

// ProvideCandleBook creates the rolling OHLCV windows.
func ProvideCandleBook(cfg *config.Config) *feed.CandleBook {
	// keep twice the classifier window so late evaluation never starves
	return feed.NewCandleBook(cfg.Feed.CandleInterval, cfg.Engine.HistoryWindow*2)
}

// ProvideFeedRunner creates the stream-to-book pump.
func ProvideFeedRunner(stream repository.MarketStream, book *feed.CandleBook, m repository.Metrics, log *logger.Logger) *feed.Runner {
	return feed.NewRunner(stream, book, m, log)
}

// ProvidePortfolioProvider creates the open-position snapshot source.
func ProvidePortfolioProvider(cfg *config.Config) service.PortfolioProvider {
	return portfolio.New(cfg)
}

// ProvideVoteProviders creates one HTTP provider per configured agent.
func ProvideVoteProviders(cfg *config.Config, log *logger.Logger) []service.VoteProvider {
	return agents.BuildProviders(cfg, log)
}

// ProvideDecisionRecorder creates the batching audit writer.
func ProvideDecisionRecorder(store repository.DecisionStore, m repository.Metrics, log *logger.Logger, cfg *config.Config) *usecase.DecisionRecorder {
	return usecase.NewDecisionRecorder(store, m, log, cfg.Audit.BatchSize, cfg.Audit.BatchTimeout)
}

// ProvideOrchestrator wires the per-cycle decision flow.
func ProvideOrchestrator(
	cfg *config.Config,
	providers []service.VoteProvider,
	book *feed.CandleBook,
	snapshots service.PortfolioProvider,
	classifier *regime.Classifier,
	engine *consensus.Engine,
	analyzer *correlation.Analyzer,
	guard *risk.Guard,
	breakers *risk.BreakerRegistry,
	kill service.KillSwitch,
	publisher repository.EventPublisher,
	recorder *usecase.DecisionRecorder,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(cfg, usecase.OrchestratorDeps{
		Providers:  providers,
		History:    book,
		Quote:      book,
		Portfolio:  snapshots,
		Classifier: classifier,
		Consensus:  engine,
		Corr:       analyzer,
		Guard:      guard,
		Breakers:   breakers,
		Kill:       kill,
		Publisher:  publisher,
		Recorder:   recorder,
		Metrics:    m,
		Logger:     log,
	})
}

// ProvideOpsHandler creates the operator HTTP surface.
func ProvideOpsHandler(
	log *logger.Logger,
	recorder *usecase.DecisionRecorder,
	store repository.DecisionStore,
	breakers *risk.BreakerRegistry,
	kill service.KillSwitch,
	stream repository.MarketStream,
	cfg *config.Config,
) xhttp.Handler {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return api.NewOpsHandler(log, recorder, store, breakers, kill, stream, path)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	orch *usecase.Orchestrator,
	runner *feed.Runner,
	recorder *usecase.DecisionRecorder,
	tracker *consensus.WeightTracker,
	limits *risk.LimitState,
	handler xhttp.Handler,
	publisher repository.EventPublisher,
	consumer *pkgkafka.Consumer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, orch, runner, recorder, tracker, limits, handler, publisher, consumer, chClient)
}
