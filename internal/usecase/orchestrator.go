package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/internal/service/ratelimit"
	"TradeQuorum/internal/services/consensus"
	"TradeQuorum/internal/services/correlation"
	"TradeQuorum/internal/services/regime"
	"TradeQuorum/internal/services/risk"
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/logger"
)

// LastQuote exposes the freshest trade seen for a symbol.
type LastQuote interface {
	Last(symbol string) (models.Trade, bool)
}

// CycleResult is the outcome of evaluating one symbol in one cycle.
// Exactly one of Decision and NoAction is set.
type CycleResult struct {
	Decision *models.TradeDecision
	NoAction *models.NoAction
	Regime   models.RegimeMetrics
}

// Orchestrator runs the per-cycle decision flow for each symbol: history,
// regime, vote collection, consensus, correlation, risk guard. A cycle is
// re-entrant and never retries internally; failed collaborators feed their
// circuit breakers and the cycle degrades to a NoAction.
type Orchestrator struct {
	symbols       []string
	historyWindow int
	voteTimeout   time.Duration

	// per-agent query budget, a hard stop against overlapping cycles
	// hammering one agent
	rateCapacity float64
	rateRefill   float64 // tokens per second

	providers  []service.VoteProvider
	history    service.MarketHistory
	quote      LastQuote
	portfolio  service.PortfolioProvider
	classifier *regime.Classifier
	consensus  *consensus.Engine
	corr       *correlation.Analyzer
	guard      *risk.Guard
	breakers   *risk.BreakerRegistry
	kill       service.KillSwitch
	limiter    *ratelimit.Limiter

	publisher drepo.EventPublisher
	recorder  *DecisionRecorder
	metrics   drepo.Metrics
	log       *logger.Logger
}

type OrchestratorDeps struct {
	Providers  []service.VoteProvider
	History    service.MarketHistory
	Quote      LastQuote
	Portfolio  service.PortfolioProvider
	Classifier *regime.Classifier
	Consensus  *consensus.Engine
	Corr       *correlation.Analyzer
	Guard      *risk.Guard
	Breakers   *risk.BreakerRegistry
	Kill       service.KillSwitch
	Publisher  drepo.EventPublisher
	Recorder   *DecisionRecorder
	Metrics    drepo.Metrics
	Logger     *logger.Logger
}

func NewOrchestrator(cfg *config.Config, deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		symbols:       cfg.Engine.Symbols,
		historyWindow: cfg.Engine.HistoryWindow,
		voteTimeout:   cfg.Engine.VoteTimeout,
		rateCapacity:  cfg.Engine.AgentRateCapacity,
		rateRefill:    cfg.Engine.AgentRateRefill,
		providers:     deps.Providers,
		history:       deps.History,
		quote:         deps.Quote,
		portfolio:     deps.Portfolio,
		classifier:    deps.Classifier,
		consensus:     deps.Consensus,
		corr:          deps.Corr,
		guard:         deps.Guard,
		breakers:      deps.Breakers,
		kill:          deps.Kill,
		limiter:       ratelimit.New(),
		publisher:     deps.Publisher,
		recorder:      deps.Recorder,
		metrics:       deps.Metrics,
		log:           deps.Logger.With("orchestrator"),
	}
}

// RunCycle evaluates every configured symbol once. Symbol evaluations are
// independent; one symbol's failure never aborts the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	start := time.Now()
	// cheap pre-check; the guard re-checks at its final layer for candidates
	// already mid-flight when the switch flips
	if o.kill != nil && o.kill.Active() {
		now := time.Now().UTC()
		for _, symbol := range o.symbols {
			o.emit(ctx, symbol, CycleResult{NoAction: &models.NoAction{
				Symbol:    symbol,
				Code:      models.ReasonKillSwitch,
				Detail:    "kill switch active: " + o.kill.Reason(),
				DecidedAt: now,
			}})
		}
		return
	}
	for _, symbol := range o.symbols {
		res := o.EvaluateSymbol(ctx, symbol)
		o.emit(ctx, symbol, res)
		if ctx.Err() != nil {
			return
		}
	}
	o.metrics.RecordLatency("cycle", time.Since(start).Seconds())
}

// EvaluateSymbol runs the full decision flow for one symbol.
func (o *Orchestrator) EvaluateSymbol(ctx context.Context, symbol string) CycleResult {
	start := time.Now()
	defer func() {
		o.metrics.RecordLatency("evaluate_symbol", time.Since(start).Seconds())
	}()

	// regime first: it is pure and cheap, and its metrics tag everything else
	window, err := o.history.History(ctx, symbol, o.historyWindow)
	if err != nil {
		o.metrics.RecordError("history")
		window = nil
	}
	var curPrice, curVolume float64
	if o.quote != nil {
		if last, ok := o.quote.Last(symbol); ok {
			curPrice, curVolume = last.Price, last.Volume
		}
	}
	rm := o.classifier.Classify(symbol, window, curPrice, curVolume)
	o.metrics.RecordRegime(symbol, string(rm.Regime))

	snapshot, noAction := o.portfolioSnapshot(ctx, symbol)
	if noAction != nil {
		return CycleResult{NoAction: noAction, Regime: rm}
	}

	votes := o.collectVotes(ctx, symbol)
	if len(votes) == 0 {
		return CycleResult{Regime: rm, NoAction: &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonNoVotes,
			Detail:    "no agent produced a usable vote within the wait window",
			DecidedAt: time.Now().UTC(),
		}}
	}

	cons := o.consensus.BuildConsensus(votes, symbol)
	o.metrics.RecordConsensusConfidence(symbol, cons.Confidence)
	if !cons.Actionable() {
		return CycleResult{Regime: rm, NoAction: &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonConsensusHold,
			Detail:    fmt.Sprintf("consensus HOLD at confidence %.2f from %d votes", cons.Confidence, len(votes)),
			DecidedAt: time.Now().UTC(),
		}}
	}

	return o.applyRisk(ctx, symbol, cons, rm, snapshot)
}

// applyRisk runs correlation adjustment, regime sizing and the layered
// guard over an actionable consensus.
func (o *Orchestrator) applyRisk(ctx context.Context, symbol string, cons models.ConsensusResult, rm models.RegimeMetrics, snapshot models.PortfolioSnapshot) CycleResult {
	cr := o.corr.Analyze(symbol, cons.Direction, cons.Notional, snapshot)
	if cr.Level == models.RiskCritical {
		o.metrics.RecordRiskBlock(string(models.LayerPortfolio))
		return CycleResult{Regime: rm, NoAction: &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonCorrelationVeto,
			Detail:    cr.Explanation,
			DecidedAt: time.Now().UTC(),
		}}
	}

	notional := cons.Notional
	var adjustments []string
	if cr.SizeAdjustment < 1 {
		notional *= cr.SizeAdjustment
		adjustments = append(adjustments, fmt.Sprintf("correlation_%s:%.2f", cr.Level, cr.SizeAdjustment))
	}
	if rm.SizeMultiplier != 1 {
		notional *= rm.SizeMultiplier
		adjustments = append(adjustments, fmt.Sprintf("regime_%s:%.2f", rm.Regime, rm.SizeMultiplier))
	}
	if notional <= 0 {
		return CycleResult{Regime: rm, NoAction: &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonZeroSizedDecision,
			Detail:    "size adjustments reduced the trade to zero",
			DecidedAt: time.Now().UTC(),
		}}
	}

	cand := risk.Candidate{
		Symbol:    symbol,
		Direction: cons.Direction,
		Notional:  notional,
	}
	adjustments = append(adjustments, o.guard.ApplyDefaults(&cand)...)

	if v := o.guard.Evaluate(cand, snapshot, cr); v != nil {
		o.metrics.RecordRiskBlock(string(v.Layer))
		o.publishViolation(ctx, symbol, v)
		code := models.ReasonRiskBlocked
		if v.Code == "kill_switch" {
			code = models.ReasonKillSwitch
		}
		return CycleResult{Regime: rm, NoAction: &models.NoAction{
			Symbol:    symbol,
			Code:      code,
			Detail:    v.Message,
			Violation: v,
			DecidedAt: time.Now().UTC(),
		}}
	}

	return CycleResult{Regime: rm, Decision: &models.TradeDecision{
		Symbol:              symbol,
		Direction:           cons.Direction,
		Notional:            cand.Notional,
		Regime:              rm.Regime,
		ConsensusConfidence: cons.Confidence,
		Adjustments:         adjustments,
		DecidedAt:           time.Now().UTC(),
	}}
}

// portfolioSnapshot fetches the open-position view behind its breaker.
// Without a trustworthy snapshot no sizing decision is defensible.
func (o *Orchestrator) portfolioSnapshot(ctx context.Context, symbol string) (models.PortfolioSnapshot, *models.NoAction) {
	const op = "portfolio"
	if err := o.breakers.Allow(op); err != nil {
		return models.PortfolioSnapshot{}, &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonCircuitOpen,
			Detail:    "portfolio provider circuit open",
			DecidedAt: time.Now().UTC(),
		}
	}
	snapshot, err := o.portfolio.Snapshot(ctx)
	if err != nil {
		o.breakers.Failure(op)
		o.metrics.RecordError("portfolio_snapshot")
		return models.PortfolioSnapshot{}, &models.NoAction{
			Symbol:    symbol,
			Code:      models.ReasonPortfolioUnknown,
			Detail:    fmt.Sprintf("portfolio snapshot failed: %v", err),
			DecidedAt: time.Now().UTC(),
		}
	}
	o.breakers.Success(op)
	return snapshot, nil
}

// collectVotes fans out to all providers with a bounded wait. Agents that
// time out, fail, or are rate-limited are excluded from consensus; absence
// is not an opinion. The returned slice is ordered by agent id so the same
// vote set always aggregates identically.
func (o *Orchestrator) collectVotes(ctx context.Context, symbol string) []models.AgentVote {
	var (
		mu    sync.Mutex
		votes []models.AgentVote
		wg    sync.WaitGroup
	)

	for _, p := range o.providers {
		op := "agent:" + p.AgentID()
		if err := o.breakers.Allow(op); err != nil {
			o.metrics.RecordVoteExcluded(p.AgentID(), "circuit_open")
			continue
		}
		if !o.limiter.Allow(op, o.rateCapacity, o.rateRefill) {
			o.metrics.RecordVoteExcluded(p.AgentID(), "rate_limited")
			continue
		}

		wg.Add(1)
		go func(p service.VoteProvider, op string) {
			defer wg.Done()
			vctx, cancel := context.WithTimeout(ctx, o.voteTimeout)
			defer cancel()

			vote, err := p.Vote(vctx, symbol)
			if err != nil {
				o.breakers.Failure(op)
				cause := "error"
				if errors.Is(err, context.DeadlineExceeded) || vctx.Err() != nil {
					cause = "timeout"
				}
				o.metrics.RecordVoteExcluded(p.AgentID(), cause)
				o.log.Warn("vote excluded",
					logger.String("agent", p.AgentID()),
					logger.String("symbol", symbol),
					logger.Error(err))
				return
			}
			o.breakers.Success(op)
			o.metrics.RecordVoteCollected(p.AgentID())

			mu.Lock()
			votes = append(votes, vote)
			mu.Unlock()
		}(p, op)
	}
	wg.Wait()

	sort.Slice(votes, func(i, j int) bool { return votes[i].AgentID < votes[j].AgentID })
	return votes
}

// emit logs, records and counts one cycle outcome.
func (o *Orchestrator) emit(ctx context.Context, symbol string, res CycleResult) {
	switch {
	case res.Decision != nil:
		d := res.Decision
		o.metrics.RecordDecision(symbol, "TRADE")
		o.recorder.Record(d.Record())
		o.log.Info("trade decision",
			logger.String("symbol", d.Symbol),
			logger.String("direction", string(d.Direction)),
			logger.Float64("notional", d.Notional),
			logger.String("regime", string(d.Regime)),
			logger.Float64("confidence", d.ConsensusConfidence),
			logger.Strings("adjustments", d.Adjustments))
	case res.NoAction != nil:
		n := res.NoAction
		o.metrics.RecordDecision(symbol, "NO_ACTION")
		o.recorder.Record(n.Record())
		o.log.Info("no action",
			logger.String("symbol", n.Symbol),
			logger.String("reason", string(n.Code)),
			logger.String("detail", n.Detail))
	}
}

func (o *Orchestrator) publishViolation(ctx context.Context, symbol string, v *models.RiskViolation) {
	ev := models.RiskViolationEvent{
		Symbol:    symbol,
		Violation: *v,
		Timestamp: time.Now().UTC(),
	}
	if err := o.publisher.PublishRiskViolation(ctx, ev); err != nil {
		o.metrics.RecordError("publish_violation")
		o.log.Warn("risk violation publish failed", logger.Error(err))
	}
}
