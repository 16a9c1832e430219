// Package postgres provides the durable execution-data store used in
// production deployments. Schema management is a one-shot Migrate call;
// upsert-by-id maps onto ON CONFLICT DO UPDATE.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/signalward/signalward/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS signal_executions (
	id                TEXT PRIMARY KEY,
	provider_id       TEXT NOT NULL,
	symbol            TEXT NOT NULL DEFAULT '',
	entry_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	exit_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
	stop_loss         DOUBLE PRECISION NOT NULL DEFAULT 0,
	take_profit       DOUBLE PRECISION NOT NULL DEFAULT 0,
	lot_size          DOUBLE PRECISION NOT NULL DEFAULT 0,
	direction         TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	outcome           TEXT NOT NULL DEFAULT '',
	pnl               DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_reward_ratio DOUBLE PRECISION,
	execution_time    TIMESTAMPTZ NOT NULL,
	close_time        TIMESTAMPTZ,
	confidence        DOUBLE PRECISION,
	signal_format     TEXT NOT NULL DEFAULT '',
	metadata          JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_signal_executions_provider
	ON signal_executions (provider_id, execution_time);
`

// Store implements tracker.Store on PostgreSQL.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens a PostgreSQL-backed store and ensures the schema exists.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{db: db, timeout: timeout}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection, for callers that manage pooling
// and migrations themselves.
func NewStore(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate signal_executions: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

const upsertQuery = `
INSERT INTO signal_executions (
	id, provider_id, symbol, entry_price, exit_price, stop_loss, take_profit,
	lot_size, direction, status, outcome, pnl, risk_reward_ratio,
	execution_time, close_time, confidence, signal_format, metadata
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
	provider_id = EXCLUDED.provider_id,
	symbol = EXCLUDED.symbol,
	entry_price = EXCLUDED.entry_price,
	exit_price = EXCLUDED.exit_price,
	stop_loss = EXCLUDED.stop_loss,
	take_profit = EXCLUDED.take_profit,
	lot_size = EXCLUDED.lot_size,
	direction = EXCLUDED.direction,
	status = EXCLUDED.status,
	outcome = EXCLUDED.outcome,
	pnl = EXCLUDED.pnl,
	risk_reward_ratio = EXCLUDED.risk_reward_ratio,
	execution_time = EXCLUDED.execution_time,
	close_time = EXCLUDED.close_time,
	confidence = EXCLUDED.confidence,
	signal_format = EXCLUDED.signal_format,
	metadata = EXCLUDED.metadata`

func (s *Store) Upsert(ctx context.Context, rec domain.SignalExecutionData) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metadata, err := json.Marshal(metadataOrEmpty(rec.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, upsertQuery,
		rec.ID, rec.ProviderID, rec.Symbol, rec.EntryPrice, rec.ExitPrice,
		rec.StopLoss, rec.TakeProfit, rec.LotSize, string(rec.Direction),
		string(rec.Status), string(rec.Outcome), rec.PnL, rec.RiskRewardRatio,
		rec.ExecutionTime, rec.CloseTime, rec.Confidence, rec.SignalFormat, metadata)
	if err != nil {
		return fmt.Errorf("upsert execution record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, recs []domain.SignalExecutionData) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(recs)/100+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch upsert: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		metadata, err := json.Marshal(metadataOrEmpty(rec.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertQuery,
			rec.ID, rec.ProviderID, rec.Symbol, rec.EntryPrice, rec.ExitPrice,
			rec.StopLoss, rec.TakeProfit, rec.LotSize, string(rec.Direction),
			string(rec.Status), string(rec.Outcome), rec.PnL, rec.RiskRewardRatio,
			rec.ExecutionTime, rec.CloseTime, rec.Confidence, rec.SignalFormat, metadata,
		); err != nil {
			return fmt.Errorf("upsert execution record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

type executionRow struct {
	ID              string          `db:"id"`
	ProviderID      string          `db:"provider_id"`
	Symbol          string          `db:"symbol"`
	EntryPrice      float64         `db:"entry_price"`
	ExitPrice       float64         `db:"exit_price"`
	StopLoss        float64         `db:"stop_loss"`
	TakeProfit      float64         `db:"take_profit"`
	LotSize         float64         `db:"lot_size"`
	Direction       string          `db:"direction"`
	Status          string          `db:"status"`
	Outcome         string          `db:"outcome"`
	PnL             float64         `db:"pnl"`
	RiskRewardRatio sql.NullFloat64 `db:"risk_reward_ratio"`
	ExecutionTime   time.Time       `db:"execution_time"`
	CloseTime       sql.NullTime    `db:"close_time"`
	Confidence      sql.NullFloat64 `db:"confidence"`
	SignalFormat    string          `db:"signal_format"`
	Metadata        []byte          `db:"metadata"`
}

func (r executionRow) toDomain() (domain.SignalExecutionData, error) {
	rec := domain.SignalExecutionData{
		ID:            r.ID,
		ProviderID:    r.ProviderID,
		Symbol:        r.Symbol,
		EntryPrice:    r.EntryPrice,
		ExitPrice:     r.ExitPrice,
		StopLoss:      r.StopLoss,
		TakeProfit:    r.TakeProfit,
		LotSize:       r.LotSize,
		Direction:     domain.Action(r.Direction),
		Status:        domain.SignalStatus(r.Status),
		Outcome:       domain.Outcome(r.Outcome),
		PnL:           r.PnL,
		ExecutionTime: r.ExecutionTime,
		SignalFormat:  r.SignalFormat,
	}
	if r.RiskRewardRatio.Valid {
		v := r.RiskRewardRatio.Float64
		rec.RiskRewardRatio = &v
	}
	if r.CloseTime.Valid {
		ts := r.CloseTime.Time
		rec.CloseTime = &ts
	}
	if r.Confidence.Valid {
		v := r.Confidence.Float64
		rec.Confidence = &v
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &rec.Metadata); err != nil {
			return rec, fmt.Errorf("unmarshal metadata for %s: %w", r.ID, err)
		}
	}
	return rec, nil
}

func (s *Store) ListByProvider(ctx context.Context, providerID string) ([]domain.SignalExecutionData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []executionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM signal_executions WHERE provider_id = $1 ORDER BY execution_time`, providerID)
	if err != nil {
		return nil, fmt.Errorf("list records for %s: %w", providerID, err)
	}
	out := make([]domain.SignalExecutionData, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) ProviderIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var providers []string
	err := s.db.SelectContext(ctx, &providers,
		`SELECT DISTINCT provider_id FROM signal_executions ORDER BY provider_id`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM signal_executions`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) Reset(ctx context.Context, providerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	if providerID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM signal_executions`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM signal_executions WHERE provider_id = $1`, providerID)
	}
	if err != nil {
		return fmt.Errorf("reset %q: %w", providerID, err)
	}
	return nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
