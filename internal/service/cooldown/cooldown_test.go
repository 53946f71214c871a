package cooldown

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAllowConsumesAndBlocks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := New(clock)

	if !g.Allow("AAPL/analysis", 5*time.Minute) {
		t.Fatal("first call should pass")
	}
	if g.Allow("AAPL/analysis", 5*time.Minute) {
		t.Fatal("second call inside interval should block")
	}

	clock.advance(4 * time.Minute)
	if g.Allow("AAPL/analysis", 5*time.Minute) {
		t.Fatal("call at 4m should still block")
	}

	clock.advance(time.Minute)
	if !g.Allow("AAPL/analysis", 5*time.Minute) {
		t.Fatal("call at 5m should pass")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := New(clock)

	if !g.Allow("AAPL/notify", time.Minute) {
		t.Fatal("first key should pass")
	}
	if !g.Allow("TSLA/notify", time.Minute) {
		t.Fatal("second key should pass")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := New(clock)

	if !g.Peek("k", time.Minute) {
		t.Fatal("peek on fresh key should be true")
	}
	if !g.Allow("k", time.Minute) {
		t.Fatal("allow after peek should pass")
	}
	if g.Peek("k", time.Minute) {
		t.Fatal("peek inside interval should be false")
	}
}

func TestResetReopensGate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := New(clock)

	g.Allow("k", time.Hour)
	g.Reset("k")
	if !g.Allow("k", time.Hour) {
		t.Fatal("allow after reset should pass")
	}
}
