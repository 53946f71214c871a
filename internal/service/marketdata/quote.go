// Package marketdata provides the quote sources: an HTTP poller and a
// websocket stream that maintains the latest quote per symbol.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	httpclient "SignalDesk/pkg/http"
)

// quoteResponse is the REST quote payload. Field names follow the
// upstream's compact schema.
type quoteResponse struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	PrevClose float64 `json:"pc"`
	Timestamp int64   `json:"t"`
	Session   string  `json:"ms,omitempty"` // market status hint, when present
}

// HTTPSource polls a REST quote endpoint. Stateless per call.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpclient.NewClient(httpclient.WithTimeout(timeout)),
	}
}

func (s *HTTPSource) Name() string { return "http-quote" }

func (s *HTTPSource) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var qr quoteResponse
	err := s.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    s.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {s.apiKey},
		},
	}, &qr)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if qr.Current == 0 {
		return nil, fmt.Errorf("quote %s: empty payload", symbol)
	}

	q := &models.Quote{
		Symbol:    symbol,
		Price:     qr.Current,
		DayHigh:   qr.High,
		DayLow:    qr.Low,
		Timestamp: time.Unix(qr.Timestamp, 0),
	}
	if qr.PrevClose > 0 {
		q.ChangePct = (qr.Current - qr.PrevClose) / qr.PrevClose * 100
	}
	if st := parseSessionHint(qr.Session); st != "" {
		q.Hint = &models.SessionHint{State: st, At: time.Now()}
	}
	return q, nil
}

func parseSessionHint(s string) models.MarketSession {
	switch s {
	case "pre", "pre-market":
		return models.SessionPre
	case "open", "regular":
		return models.SessionRegular
	case "post", "after-hours":
		return models.SessionPost
	case "closed":
		return models.SessionClosed
	default:
		return ""
	}
}
