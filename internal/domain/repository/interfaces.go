package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
)

// MarketDataSource supplies the latest quote for a symbol. Implementations
// may return stale or partial data; callers tolerate both.
type MarketDataSource interface {
	LatestQuote(ctx context.Context, symbol string) (*models.Quote, error)
	Name() string
}

// HistoryStore persists evaluated ticks and consensus verdicts for review.
type HistoryStore interface {
	Init(ctx context.Context) error
	StoreTick(ctx context.Context, rec *models.TickRecord) error
	StoreVerdict(ctx context.Context, v *models.ConsensusVerdict) error
	QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TickRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertPublisher publishes alert events to the event bus.
type AlertPublisher interface {
	Publish(ctx context.Context, ev *models.AlertEvent) error
	Close() error
}

// TickPublisher publishes evaluated tick records for downstream archival.
type TickPublisher interface {
	PublishTick(ctx context.Context, rec *models.TickRecord) error
	Close() error
}

// SettingsStore is an async key/value store for configuration. The core
// algorithms never touch it directly.
type SettingsStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordTick(symbol string)
	RecordLastPrice(symbol string, price float64)
	RecordSignal(symbol string, label string)
	RecordProviderCall(provider, outcome string, seconds float64)
	RecordConsensusRun(outcome string)
	RecordCacheLookup(hit bool)
	RecordAlert(kind string)
	RecordError(kind string)
}
