package repository

import (
	"context"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

func storeTickAt(t *testing.T, m *MemoryHistory, symbol string, price float64, at time.Time) {
	t.Helper()
	if err := m.StoreTick(context.Background(), &models.TickRecord{Symbol: symbol, Price: price, Timestamp: at}); err != nil {
		t.Fatalf("store tick: %v", err)
	}
}

func TestQueryTicksNewestFirst(t *testing.T) {
	m := NewMemoryHistory()
	base := time.Unix(10000, 0)
	for i := 0; i < 5; i++ {
		storeTickAt(t, m, "AAPL", 100+float64(i), base.Add(time.Duration(i)*time.Minute))
	}

	out, err := m.QueryTicks(context.Background(), "AAPL", base, base.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("rows = %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.After(out[i-1].Timestamp) {
			t.Fatalf("rows not newest first: %v then %v", out[i-1].Timestamp, out[i].Timestamp)
		}
	}
}

func TestQueryTicksLimitKeepsNewest(t *testing.T) {
	m := NewMemoryHistory()
	base := time.Unix(10000, 0)
	for i := 0; i < 5; i++ {
		storeTickAt(t, m, "AAPL", 100+float64(i), base.Add(time.Duration(i)*time.Minute))
	}

	out, err := m.QueryTicks(context.Background(), "AAPL", base, base.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d", len(out))
	}
	if out[0].Price != 104 || out[1].Price != 103 {
		t.Fatalf("limit should keep the newest rows, got %.0f, %.0f", out[0].Price, out[1].Price)
	}
}

func TestQueryTicksHonorsRange(t *testing.T) {
	m := NewMemoryHistory()
	base := time.Unix(10000, 0)
	for i := 0; i < 5; i++ {
		storeTickAt(t, m, "AAPL", 100+float64(i), base.Add(time.Duration(i)*time.Minute))
	}

	out, err := m.QueryTicks(context.Background(), "AAPL", base.Add(time.Minute), base.Add(3*time.Minute), 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("rows = %d", len(out))
	}
	if out[0].Price != 103 || out[2].Price != 101 {
		t.Fatalf("range filter wrong: %.0f .. %.0f", out[0].Price, out[2].Price)
	}
}
