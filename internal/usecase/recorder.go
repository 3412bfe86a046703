package usecase

import (
	"context"
	"sync"
	"time"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/pkg/logger"
)

const recentRingSize = 256

// DecisionRecorder buffers audit rows and flushes them to the decision
// store in batches. It also keeps a small in-memory ring so the ops API can
// answer "what happened recently" without a round-trip to the store.
type DecisionRecorder struct {
	store   drepo.DecisionStore
	metrics drepo.Metrics
	log     *logger.Logger

	batchSize    int
	batchTimeout time.Duration
	in           chan *models.DecisionRecord

	mu     sync.RWMutex
	recent []*models.DecisionRecord // newest last, bounded by recentRingSize

	done chan struct{}
}

func NewDecisionRecorder(store drepo.DecisionStore, metrics drepo.Metrics, log *logger.Logger, batchSize int, batchTimeout time.Duration) *DecisionRecorder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if batchTimeout <= 0 {
		batchTimeout = 2 * time.Second
	}
	return &DecisionRecorder{
		store:        store,
		metrics:      metrics,
		log:          log.With("decision_recorder"),
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		in:           make(chan *models.DecisionRecord, 1024),
		done:         make(chan struct{}),
	}
}

// Record enqueues one audit row. Never blocks the decision path; when the
// buffer is full the row is dropped from the durable trail but kept in the
// in-memory ring.
func (r *DecisionRecorder) Record(rec *models.DecisionRecord) {
	if rec == nil {
		return
	}
	r.remember(rec)
	select {
	case r.in <- rec:
	default:
		r.metrics.RecordError("audit_buffer_full")
	}
}

// Recent returns up to limit most recent rows, newest first.
func (r *DecisionRecorder) Recent(symbol string, limit int) []*models.DecisionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.DecisionRecord, 0, limit)
	for i := len(r.recent) - 1; i >= 0 && len(out) < limit; i-- {
		if symbol != "" && r.recent[i].Symbol != symbol {
			continue
		}
		out = append(out, r.recent[i])
	}
	return out
}

// Run drains the buffer until ctx ends, then performs a final flush.
func (r *DecisionRecorder) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.batchTimeout)
	defer ticker.Stop()

	batch := make([]*models.DecisionRecord, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// detached context so a shutdown flush still lands
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.StoreBatch(fctx, batch); err != nil {
			r.metrics.RecordError("audit_flush")
			r.log.Error("audit flush failed", logger.Error(err), logger.Int("rows", len(batch)))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.in:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		case rec := <-r.in:
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Wait blocks until Run has drained and returned.
func (r *DecisionRecorder) Wait() { <-r.done }

func (r *DecisionRecorder) remember(rec *models.DecisionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, rec)
	if len(r.recent) > recentRingSize {
		r.recent = r.recent[len(r.recent)-recentRingSize:]
	}
}
