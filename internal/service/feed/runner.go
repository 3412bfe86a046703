package feed

import (
	"context"
	"errors"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/pkg/logger"
)

var errStreamClosed = errors.New("stream channels closed")

// Runner pumps the live stream into the candle book and reconnects when the
// connection drops. Run blocks until the context is cancelled.
type Runner struct {
	stream  drepo.MarketStream
	book    *CandleBook
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewRunner(stream drepo.MarketStream, book *CandleBook, metrics drepo.Metrics, log *logger.Logger) *Runner {
	return &Runner{stream: stream, book: book, metrics: metrics, log: log.With("feed_runner")}
}

func (r *Runner) Run(ctx context.Context) error {
	if err := r.stream.Connect(ctx); err != nil {
		return err
	}
	if err := r.stream.Subscribe(ctx); err != nil {
		return err
	}

	for {
		trades, errs := r.stream.Read(ctx)
		if err := r.pump(ctx, trades, errs); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.metrics.RecordError("feed_disconnect")
			r.log.Warn("stream dropped, reconnecting", logger.Error(err))
			if err := r.stream.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.metrics.RecordError("feed_reconnect")
				r.log.Error("reconnect failed, retrying", logger.Error(err))
			}
			continue
		}
		return nil
	}
}

// pump drains one connection's channels. A nil return means the context
// ended; an error means the connection needs to be rebuilt.
func (r *Runner) pump(ctx context.Context, trades <-chan *models.Trade, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return errStreamClosed
			}
			return err
		case t, ok := <-trades:
			if !ok {
				return errStreamClosed
			}
			r.book.Apply(t)
		}
	}
}
