package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
)

const (
	ticksTable    = "sd_ticks"
	verdictsTable = "sd_verdicts"
)

// ClickHouseHistory implements HistoryStore on ClickHouse. Ticks and
// verdicts land in separate MergeTree tables keyed by (symbol, ts).
type ClickHouseHistory struct {
	db *sql.DB
}

func NewClickHouseHistory(db *sql.DB) repository.HistoryStore {
	return &ClickHouseHistory{db: db}
}

func (s *ClickHouseHistory) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ts DateTime,
			symbol LowCardinality(String),
			price Float64,
			rsi Float64,
			macd Float64,
			atr Float64,
			label LowCardinality(String)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)
		TTL ts + INTERVAL 90 DAY`, ticksTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ts DateTime,
			symbol LowCardinality(String),
			action LowCardinality(String),
			avg_sentiment Float64,
			avg_support Float64,
			avg_resistance Float64,
			position_advice String,
			opinions String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)
		TTL ts + INTERVAL 365 DAY`, verdictsTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init history schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseHistory) StoreTick(ctx context.Context, rec *models.TickRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, rsi, macd, atr, label) VALUES (?, ?, ?, ?, ?, ?, ?)", ticksTable)
	_, err := s.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.Symbol,
		rec.Price,
		rec.RSI,
		rec.MACD,
		rec.ATR,
		string(rec.Label),
	)
	if err != nil {
		return fmt.Errorf("store tick %s: %w", rec.Symbol, err)
	}
	return nil
}

func (s *ClickHouseHistory) StoreVerdict(ctx context.Context, v *models.ConsensusVerdict) error {
	opinions, err := json.Marshal(v.Opinions)
	if err != nil {
		return fmt.Errorf("marshal opinions: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, action, avg_sentiment, avg_support, avg_resistance, position_advice, opinions) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", verdictsTable)
	_, err = s.db.ExecContext(ctx, q,
		v.Timestamp,
		v.Symbol,
		string(v.Action),
		v.AvgSentiment,
		v.AvgSupport,
		v.AvgResistance,
		v.PositionAdvice,
		string(opinions),
	)
	if err != nil {
		return fmt.Errorf("store verdict %s: %w", v.Symbol, err)
	}
	return nil
}

func (s *ClickHouseHistory) QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TickRecord, error) {
	q := fmt.Sprintf("SELECT ts, symbol, price, rsi, macd, atr, label FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", ticksTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks %s: %w", symbol, err)
	}
	defer rows.Close()

	var recs []*models.TickRecord
	for rows.Next() {
		var r models.TickRecord
		var label string
		if err := rows.Scan(&r.Timestamp, &r.Symbol, &r.Price, &r.RSI, &r.MACD, &r.ATR, &label); err != nil {
			return nil, err
		}
		r.Label = models.SignalLabel(label)
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}

func (s *ClickHouseHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseHistory) Close() error {
	return nil // pool owned by pkg/clickhouse
}
