package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
)

const positionKeyPrefix = "position:"

// PositionBook holds open positions in memory and mirrors them to the
// settings store so they survive restarts. The hot path (tick loops)
// never touches the store.
type PositionBook struct {
	store domrepo.SettingsStore

	mu        sync.RWMutex
	positions map[string]*models.Position
}

func NewPositionBook(store domrepo.SettingsStore) *PositionBook {
	return &PositionBook{
		store:     store,
		positions: make(map[string]*models.Position),
	}
}

// Load hydrates positions for the given symbols from the settings store.
// Missing keys mean flat, not an error.
func (b *PositionBook) Load(ctx context.Context, symbols []string) error {
	for _, sym := range symbols {
		var p models.Position
		err := b.store.Get(ctx, positionKeyPrefix+sym, &p)
		if err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				continue
			}
			return fmt.Errorf("load position %s: %w", sym, err)
		}
		if p.Shares > 0 {
			b.mu.Lock()
			b.positions[sym] = &p
			b.mu.Unlock()
		}
	}
	return nil
}

// Get returns the open position for symbol, or nil when flat.
func (b *PositionBook) Get(symbol string) *models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.positions[symbol]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Set records a position and persists it. Zero shares clears the symbol.
func (b *PositionBook) Set(ctx context.Context, symbol string, p *models.Position) error {
	b.mu.Lock()
	if p == nil || p.Shares <= 0 {
		delete(b.positions, symbol)
		p = &models.Position{}
	} else {
		cp := *p
		b.positions[symbol] = &cp
	}
	b.mu.Unlock()

	if err := b.store.Set(ctx, positionKeyPrefix+symbol, p); err != nil {
		return fmt.Errorf("persist position %s: %w", symbol, err)
	}
	return nil
}
