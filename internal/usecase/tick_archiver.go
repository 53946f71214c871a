package usecase

import (
	"context"
	"encoding/json"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
)

// TickArchiver consumes the tick topic and writes rows to the history
// store. Runs in the consumer's worker pool, decoupled from tick loops.
type TickArchiver struct {
	topic   string
	history domrepo.HistoryStore
	metrics domrepo.Metrics
}

func NewTickArchiver(topic string, history domrepo.HistoryStore, metrics domrepo.Metrics) *TickArchiver {
	return &TickArchiver{topic: topic, history: history, metrics: metrics}
}

func (a *TickArchiver) Topic() string { return a.topic }

func (a *TickArchiver) Handle(ctx context.Context, b []byte) error {
	var rec models.TickRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		a.metrics.RecordError("archiver_unmarshal")
		return err
	}
	if err := a.history.StoreTick(ctx, &rec); err != nil {
		a.metrics.RecordError("archiver_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*TickArchiver)(nil)
