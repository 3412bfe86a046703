package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/service/feed"
	"TradeQuorum/internal/services/consensus"
	"TradeQuorum/internal/services/risk"
	"TradeQuorum/internal/usecase"
	pkgch "TradeQuorum/pkg/clickhouse"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
	pkgkafka "TradeQuorum/pkg/kafka"
	applogger "TradeQuorum/pkg/logger"

	"github.com/robfig/cron/v3"
)

// App encapsulates the application lifecycle: the cron-driven evaluation
// cycles, the market feed pump, the audit writer, the weight tracker and the
// ops HTTP server.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	orch      *usecase.Orchestrator
	runner    *feed.Runner
	recorder  *usecase.DecisionRecorder
	tracker   *consensus.WeightTracker
	limits    *risk.LimitState
	handler   xhttp.Handler
	publisher repository.EventPublisher
	consumer  *pkgkafka.Consumer
	chClient  *pkgch.Client

	httpServer *xhttp.Server
	cron       *cron.Cron
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	runner *feed.Runner,
	recorder *usecase.DecisionRecorder,
	tracker *consensus.WeightTracker,
	limits *risk.LimitState,
	handler xhttp.Handler,
	publisher repository.EventPublisher,
	consumer *pkgkafka.Consumer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log.With("app"),
		orch:      orch,
		runner:    runner,
		recorder:  recorder,
		tracker:   tracker,
		limits:    limits,
		handler:   handler,
		publisher: publisher,
		consumer:  consumer,
		chClient:  chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// audit writer first so no early decision is lost
	go a.recorder.Run(ctx)

	// market feed pump; cycles degrade to the unknown regime until the
	// window fills
	go func() {
		if err := a.runner.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("feed runner stopped", applogger.Error(err))
		}
	}()

	// agent weights: one synchronous refresh so the first cycle does not
	// run everything at the neutral prior longer than necessary
	a.tracker.Refresh(ctx)
	go a.tracker.Run(ctx, a.cfg.Consensus.WeightRefresh)

	// closed-trade outcomes feeding the performance history
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("outcome consumer: %w", err)
		}
	}

	if err := a.schedule(ctx); err != nil {
		return err
	}
	a.cron.Start()
	a.log.Info("scheduler started",
		applogger.String("cycle", a.cfg.Engine.CycleSpec),
		applogger.String("rollover", a.cfg.Risk.RolloverSpec),
		applogger.Strings("symbols", a.cfg.Engine.Symbols))

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx, cancel)
}

// schedule registers the evaluation cycle and the daily risk rollover.
func (a *App) schedule(ctx context.Context) error {
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.cfg.Engine.CycleSpec, func() {
		a.orch.RunCycle(ctx)
	}); err != nil {
		return fmt.Errorf("register cycle: %w", err)
	}
	if _, err := a.cron.AddFunc(a.cfg.Risk.RolloverSpec, func() {
		a.limits.Rollover()
		a.log.Info("daily risk counters rolled over")
	}); err != nil {
		return fmt.Errorf("register rollover: %w", err)
	}
	return nil
}

// shutdown stops intake first, then drains, then closes infrastructure.
func (a *App) shutdown(ctx context.Context, cancel context.CancelFunc) error {
	// no new cycles
	cronCtx := a.cron.Stop()
	<-cronCtx.Done()

	// stop feed, weights and recorder intake
	cancel()

	shutdownCtx, cancelHTTP := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancelHTTP()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// recorder performs a final flush after its context ends
	a.recorder.Wait()

	if a.consumer != nil {
		stopCtx, cancelConsumer := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.log.Warn("outcome consumer stop error", applogger.Error(err))
		}
		cancelConsumer()
	}

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("event publisher close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
