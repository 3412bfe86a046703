package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions           *prometheus.CounterVec
	riskBlocks          *prometheus.CounterVec
	breakerTransitions  *prometheus.CounterVec
	votesCollected      *prometheus.CounterVec
	votesExcluded       *prometheus.CounterVec
	consensusConfidence *prometheus.GaugeVec
	regimes             *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
	latency             *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_decisions_total",
				Help: "Cycle outcomes by symbol and action",
			},
			[]string{"symbol", "action"},
		),
		riskBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_risk_blocks_total",
				Help: "Trades blocked by the risk guard, by layer",
			},
			[]string{"layer"},
		),
		breakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_breaker_transitions_total",
				Help: "Circuit breaker state transitions by operation",
			},
			[]string{"operation", "to"},
		),
		votesCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_votes_collected_total",
				Help: "Agent votes accepted into consensus",
			},
			[]string{"agent"},
		),
		votesExcluded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_votes_excluded_total",
				Help: "Agent votes excluded from consensus, by cause",
			},
			[]string{"agent", "cause"},
		),
		consensusConfidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradequorum_consensus_confidence",
				Help: "Last consensus confidence per symbol",
			},
			[]string{"symbol"},
		),
		regimes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_regime_observations_total",
				Help: "Regime classifications by symbol",
			},
			[]string{"symbol", "regime"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradequorum_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordDecision(symbol, action string) {
	r.decisions.WithLabelValues(symbol, action).Inc()
}

func (r *Recorder) RecordRiskBlock(layer string) {
	r.riskBlocks.WithLabelValues(layer).Inc()
}

func (r *Recorder) RecordBreakerTransition(operation, to string) {
	r.breakerTransitions.WithLabelValues(operation, to).Inc()
}

func (r *Recorder) RecordVoteCollected(agentID string) {
	r.votesCollected.WithLabelValues(agentID).Inc()
}

func (r *Recorder) RecordVoteExcluded(agentID, cause string) {
	r.votesExcluded.WithLabelValues(agentID, cause).Inc()
}

func (r *Recorder) RecordConsensusConfidence(symbol string, confidence float64) {
	r.consensusConfidence.WithLabelValues(symbol).Set(confidence)
}

func (r *Recorder) RecordRegime(symbol, regime string) {
	r.regimes.WithLabelValues(symbol, regime).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
