package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamSource consumes a trade websocket and keeps the latest quote per
// subscribed symbol, tracking the day's high/low locally. LatestQuote is
// answered from memory, so ticks never wait on the network. When a symbol
// has not traded yet it falls back to the wrapped source.
type StreamSource struct {
	apiKey         string
	wsURL          string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	fallback       domrepo.MarketDataSource
	logger         *applogger.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	latest map[string]*models.Quote
	opens  map[string]float64 // first traded price of the day, for change%
}

func NewStreamSource(apiKey, wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration, fallback domrepo.MarketDataSource, l *applogger.Logger) *StreamSource {
	return &StreamSource{
		apiKey:         apiKey,
		wsURL:          wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		fallback:       fallback,
		logger:         l,
		latest:         make(map[string]*models.Quote),
		opens:          make(map[string]float64),
	}
}

func (s *StreamSource) Name() string { return "websocket-stream" }

// LatestQuote answers from the in-memory book, deferring to the fallback
// source until the stream has seen the symbol trade.
func (s *StreamSource) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.mu.RLock()
	q, ok := s.latest[symbol]
	s.mu.RUnlock()
	if ok {
		cp := *q
		return &cp, nil
	}
	if s.fallback != nil {
		return s.fallback.LatestQuote(ctx, symbol)
	}
	return nil, fmt.Errorf("no trades observed for %s", symbol)
}

// Run connects, subscribes and consumes frames until ctx is cancelled,
// reconnecting after read failures.
func (s *StreamSource) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connect(ctx); err != nil {
			s.logger.Warn("stream connect failed", applogger.Error(err))
			if !sleepCtx(ctx, s.reconnectDelay) {
				return
			}
			continue
		}
		s.logger.Info("market stream connected", applogger.Strings("symbols", s.symbols))

		pingCtx, cancelPing := context.WithCancel(ctx)
		go s.pingLoop(pingCtx)
		err := s.readLoop(ctx)
		cancelPing()
		s.closeConn()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("market stream dropped", applogger.Error(err))
		if !sleepCtx(ctx, s.reconnectDelay) {
			return
		}
	}
}

func (s *StreamSource) connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.wsURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

type streamTrade struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // ms
}

type streamFrame struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

func (s *StreamSource) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return fmt.Errorf("stream connection gone")
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}
		var frame streamFrame
		if err := json.Unmarshal(b, &frame); err != nil || frame.Type != "trade" {
			continue
		}
		for _, tr := range frame.Data {
			s.apply(tr)
		}
	}
}

func (s *StreamSource) apply(tr streamTrade) {
	at := time.Unix(tr.Timestamp/1000, tr.Timestamp%1000*int64(time.Millisecond))
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.latest[tr.Symbol]
	if !ok {
		s.opens[tr.Symbol] = tr.Price
		q = &models.Quote{Symbol: tr.Symbol, DayHigh: tr.Price, DayLow: tr.Price}
		s.latest[tr.Symbol] = q
	}
	q.Price = tr.Price
	if tr.Price > q.DayHigh {
		q.DayHigh = tr.Price
	}
	if tr.Price < q.DayLow {
		q.DayLow = tr.Price
	}
	if open := s.opens[tr.Symbol]; open > 0 {
		q.ChangePct = (tr.Price - open) / open * 100
	}
	q.Timestamp = at
}

func (s *StreamSource) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *StreamSource) closeConn() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
