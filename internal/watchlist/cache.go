// Package watchlist maintains the per-symbol decision cache: the latest
// quote-derived state plus the most recent consensus verdict, reused while
// fresh so providers are not hammered on every tick.
package watchlist

import (
	"sort"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/policy"
)

// DefaultFreshness is how long a consensus verdict stays reusable.
const DefaultFreshness = 15 * time.Minute

// Decision is what the cache answers for a symbol: a fresh consensus
// verdict when one exists, otherwise the local policy stance. Overridden
// is set when macro risk vetoed the cached action outright; Caution when
// it was downgraded but left actionable.
type Decision struct {
	Symbol     string
	FromCache  bool
	Verdict    *models.ConsensusVerdict // nil when falling back to policy
	Policy     models.PolicyDecision
	Overridden bool
	Caution    bool
	Note       string
}

// Cache is the decision cache. Safe for concurrent use.
type Cache struct {
	freshness time.Duration
	clock     domsvc.Clock
	metrics   domrepo.Metrics

	mu      sync.RWMutex
	entries map[string]*models.WatchlistEntry
}

func NewCache(freshness time.Duration, clock domsvc.Clock, m domrepo.Metrics) *Cache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Cache{
		freshness: freshness,
		clock:     clock,
		metrics:   m,
		entries:   make(map[string]*models.WatchlistEntry),
	}
}

// Track registers a symbol so it appears in snapshots before its first tick.
func (c *Cache) Track(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[symbol]; !ok {
		c.entries[symbol] = &models.WatchlistEntry{Symbol: symbol}
	}
}

// UpdateQuote refreshes the per-symbol market state on every tick.
func (c *Cache) UpdateQuote(symbol string, price, changePct, volatility float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok {
		e = &models.WatchlistEntry{Symbol: symbol}
		c.entries[symbol] = e
	}
	e.LastPrice = price
	e.LastChangePct = changePct
	e.VolatilityLevel = volatility
	e.UpdatedAt = c.clock.Now()
}

// StoreVerdict caches a settled consensus verdict for its symbol.
func (c *Cache) StoreVerdict(v *models.ConsensusVerdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[v.Symbol]
	if !ok {
		e = &models.WatchlistEntry{Symbol: v.Symbol}
		c.entries[v.Symbol] = e
	}
	e.Verdict = v
}

// FreshVerdict returns the cached verdict when it is younger than the
// freshness window, recording the lookup either way.
func (c *Cache) FreshVerdict(symbol string) (*models.ConsensusVerdict, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	var v *models.ConsensusVerdict
	if ok {
		v = e.Verdict
	}
	c.mu.RUnlock()

	if v == nil || v.Age(c.clock.Now()) >= c.freshness {
		c.metrics.RecordCacheLookup(false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(true)
	return v, true
}

// Decide answers for one symbol. A fresh cached verdict wins over the
// local policy, but the macro filter is re-applied to it: a cached BUY is
// not allowed to outlive a deteriorating tape.
func (c *Cache) Decide(symbol string, pd models.PolicyDecision, macro *models.MacroSnapshot) Decision {
	d := Decision{Symbol: symbol, Policy: pd}

	v, ok := c.FreshVerdict(symbol)
	if !ok {
		return d
	}
	d.FromCache = true
	d.Verdict = v

	if v.Action == models.ActionBuy && macro != nil {
		switch {
		case macro.IndexChangePct <= policy.MacroAvoidPct:
			d.Overridden = true
			d.Note = "macro risk override: cached BUY suppressed while index is down"
		case macro.IndexChangePct <= policy.MacroCautionPct:
			d.Caution = true
			d.Note = "macro caution: cached BUY downgraded while index is weak, size down"
		}
	}
	return d
}

// Snapshot returns all entries ordered by symbol.
func (c *Cache) Snapshot() []*models.WatchlistEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.WatchlistEntry, 0, len(c.entries))
	for _, e := range c.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns the tracked symbols in order.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for s := range c.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
