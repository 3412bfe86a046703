package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradeQuorum/internal/domain/models"
	drepo "TradeQuorum/internal/domain/repository"
)

// decisionSchema creates the append-only audit table. MergeTree ordered by
// (symbol, decided_at) serves the "recent decisions per symbol" ops query.
var decisionSchema = []string{
	`CREATE TABLE IF NOT EXISTS decisions (
		decided_at DateTime64(3) CODEC(Delta, ZSTD),
		symbol LowCardinality(String),
		action LowCardinality(String),
		direction LowCardinality(String),
		notional Float64,
		regime LowCardinality(String),
		confidence Float64,
		reason LowCardinality(String),
		detail String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(decided_at)
	ORDER BY (symbol, decided_at)
	TTL toDateTime(decided_at) + INTERVAL 180 DAY`,
}

// ClickHouseDecisionStore persists the audit trail of every cycle outcome.
type ClickHouseDecisionStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseDecisionStore(db *sql.DB) drepo.DecisionStore {
	return &ClickHouseDecisionStore{db: db, table: "decisions"}
}

func (s *ClickHouseDecisionStore) Init(ctx context.Context) error {
	for _, stmt := range decisionSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init decisions schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseDecisionStore) Store(ctx context.Context, rec *models.DecisionRecord) error {
	return s.StoreBatch(ctx, []*models.DecisionRecord{rec})
}

func (s *ClickHouseDecisionStore) StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*9)
	for _, r := range recs {
		if r == nil || r.Symbol == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.DecidedAt,
			r.Symbol,
			r.Action,
			r.Direction,
			r.Notional,
			r.Regime,
			r.Confidence,
			r.Reason,
			r.Detail,
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (decided_at, symbol, action, direction, notional, regime, confidence, reason, detail) VALUES %s",
		s.table, strings.Join(values, ","),
	)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store decisions: %w", err)
	}
	return nil
}

func (s *ClickHouseDecisionStore) Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.DecisionRecord, error) {
	q := fmt.Sprintf(
		"SELECT decided_at, symbol, action, direction, notional, regime, confidence, reason, detail FROM %s WHERE decided_at >= ?",
		s.table,
	)
	args := []interface{}{since}
	if symbol != "" {
		q += " AND symbol = ?"
		args = append(args, symbol)
	}
	q += " ORDER BY decided_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []*models.DecisionRecord
	for rows.Next() {
		var r models.DecisionRecord
		if err := rows.Scan(&r.DecidedAt, &r.Symbol, &r.Action, &r.Direction, &r.Notional, &r.Regime, &r.Confidence, &r.Reason, &r.Detail); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseDecisionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseDecisionStore) Close() error {
	return nil // pool owned by the clickhouse client
}

// NoopDecisionStore is used when the audit sink is disabled; decisions are
// still logged but not persisted.
type NoopDecisionStore struct{}

func (NoopDecisionStore) Init(context.Context) error                          { return nil }
func (NoopDecisionStore) Store(context.Context, *models.DecisionRecord) error { return nil }
func (NoopDecisionStore) StoreBatch(context.Context, []*models.DecisionRecord) error {
	return nil
}
func (NoopDecisionStore) Recent(context.Context, string, time.Time, int) ([]*models.DecisionRecord, error) {
	return nil, nil
}
func (NoopDecisionStore) Health(context.Context) error { return nil }
func (NoopDecisionStore) Close() error                 { return nil }
