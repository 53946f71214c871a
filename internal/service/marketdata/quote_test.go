package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

func TestHTTPSourceParsesQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("token"); got != "k" {
			t.Errorf("token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"c":190,"h":192,"l":188,"pc":185,"t":1756700000,"ms":"open"}`))
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL, "k", 5*time.Second)
	q, err := s.LatestQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 190 || q.DayHigh != 192 || q.DayLow != 188 {
		t.Fatalf("quote = %+v", q)
	}
	wantChg := (190.0 - 185.0) / 185.0 * 100
	if q.ChangePct != wantChg {
		t.Fatalf("change = %v, want %v", q.ChangePct, wantChg)
	}
	if q.Hint == nil || q.Hint.State != models.SessionRegular {
		t.Fatalf("hint = %+v", q.Hint)
	}
}

func TestHTTPSourceEmptyPayloadIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"h":0,"l":0,"pc":0,"t":0}`))
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL, "k", 5*time.Second)
	if _, err := s.LatestQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on empty payload")
	}
}

func TestStreamSourceTracksDayRange(t *testing.T) {
	s := NewStreamSource("k", "ws://unused", []string{"AAPL"}, time.Second, time.Second, nil, nil)

	for _, p := range []float64{100, 103, 99, 101} {
		s.apply(streamTrade{Symbol: "AAPL", Price: p, Timestamp: 1756700000000})
	}

	q, err := s.LatestQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 101 || q.DayHigh != 103 || q.DayLow != 99 {
		t.Fatalf("quote = %+v", q)
	}
	wantChg := 1.0 // opened at 100
	if q.ChangePct != wantChg {
		t.Fatalf("change = %v, want %v", q.ChangePct, wantChg)
	}
}

func TestStreamSourceFallsBackBeforeFirstTrade(t *testing.T) {
	s := NewStreamSource("k", "ws://unused", []string{"AAPL"}, time.Second, time.Second, nil, nil)
	if _, err := s.LatestQuote(context.Background(), "MSFT"); err == nil {
		t.Fatal("expected error with no fallback and no trades")
	}
}
