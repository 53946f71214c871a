package repository

import (
	"context"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
)

const memoryHistoryCap = 1000

// MemoryHistory is an in-process HistoryStore used when ClickHouse is
// disabled. It keeps a bounded window of ticks per symbol, oldest first.
type MemoryHistory struct {
	mu       sync.RWMutex
	ticks    map[string][]*models.TickRecord
	verdicts map[string]*models.ConsensusVerdict
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		ticks:    make(map[string][]*models.TickRecord),
		verdicts: make(map[string]*models.ConsensusVerdict),
	}
}

func (m *MemoryHistory) Init(context.Context) error { return nil }

func (m *MemoryHistory) StoreTick(_ context.Context, rec *models.TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := append(m.ticks[rec.Symbol], rec)
	if len(rows) > memoryHistoryCap {
		rows = rows[len(rows)-memoryHistoryCap:]
	}
	m.ticks[rec.Symbol] = rows
	return nil
}

func (m *MemoryHistory) StoreVerdict(_ context.Context, v *models.ConsensusVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts[v.Symbol] = v
	return nil
}

func (m *MemoryHistory) QueryTicks(_ context.Context, symbol string, from, to time.Time, limit int) ([]*models.TickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first, matching the ClickHouse query order.
	rows := m.ticks[symbol]
	var out []*models.TickRecord
	for i := len(rows) - 1; i >= 0; i-- {
		rec := rows[i]
		if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryHistory) Health(context.Context) error { return nil }

func (m *MemoryHistory) Close() error { return nil }
