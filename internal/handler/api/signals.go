// Package api exposes the HTTP surface: signals, watchlist, consensus,
// session/macro state, history and health.
package api

import (
	"errors"
	"time"

	"SignalDesk/internal/consensus"
	models "SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/service/cooldown"
	"SignalDesk/internal/session"
	"SignalDesk/internal/usecase"
	"SignalDesk/internal/watchlist"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalyzeRateLimit throttles user-initiated analysis per symbol.
const AnalyzeRateLimit = 60 * time.Second

type SignalsHandler struct {
	logger   *xlogger.Logger
	loop     *usecase.TickLoop
	analyzer *usecase.Analyzer
	wl       *watchlist.Cache
	macro    *macro.Holder
	history  domrepo.HistoryStore
	gate     *cooldown.Gate
	clock    domsvc.Clock
}

func NewSignalsHandler(
	logger *xlogger.Logger,
	loop *usecase.TickLoop,
	analyzer *usecase.Analyzer,
	wl *watchlist.Cache,
	macroHolder *macro.Holder,
	history domrepo.HistoryStore,
	gate *cooldown.Gate,
	clock domsvc.Clock,
) *SignalsHandler {
	return &SignalsHandler{
		logger:   logger,
		loop:     loop,
		analyzer: analyzer,
		wl:       wl,
		macro:    macroHolder,
		history:  history,
		gate:     gate,
		clock:    clock,
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/watchlist", h.Watchlist)
	g.GET("/consensus", h.Consensus)
	g.POST("/analyze", h.Analyze)
	g.GET("/session", h.Session)
	g.GET("/macro", h.Macro)
	g.GET("/history", h.History)
	g.GET("/health", h.Health)
}

type signalResponse struct {
	Symbol     string                   `json:"symbol"`
	Price      float64                  `json:"price"`
	ChangePct  float64                  `json:"change_pct"`
	Session    models.MarketSession     `json:"session"`
	Indicators models.IndicatorSnapshot `json:"indicators"`
	Label      models.SignalLabel       `json:"label"`
	Rationale  string                   `json:"rationale"`
	FromCache  bool                     `json:"from_cache"`
	Overridden bool                     `json:"overridden,omitempty"`
	Caution    bool                     `json:"caution,omitempty"`
	Note       string                   `json:"note,omitempty"`
	Verdict    *models.ConsensusVerdict `json:"verdict,omitempty"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// Signal returns one symbol's latest local evaluation plus the cached
// consensus verdict when fresh.
func (h *SignalsHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state, ok := h.loop.StateFor(req.Symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no data for symbol yet")
	}

	d := h.wl.Decide(req.Symbol, state.Policy, h.macro.Current())
	return xhttp.SuccessResponse(c, &signalResponse{
		Symbol:     req.Symbol,
		Price:      state.Quote.Price,
		ChangePct:  state.Quote.ChangePct,
		Session:    state.Session,
		Indicators: state.Indicators,
		Label:      state.Policy.Label,
		Rationale:  state.Policy.Rationale,
		FromCache:  d.FromCache,
		Overridden: d.Overridden,
		Caution:    d.Caution,
		Note:       d.Note,
		Verdict:    d.Verdict,
		UpdatedAt:  state.UpdatedAt,
	})
}

func (h *SignalsHandler) Watchlist(c echo.Context) error {
	entries := h.wl.Snapshot()
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

// Consensus returns the cached verdict for a symbol, fresh or not; the
// age lets the caller judge staleness.
func (h *SignalsHandler) Consensus(c echo.Context) error {
	req := &models.ConsensusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	v, ok := h.wl.FreshVerdict(req.Symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no fresh consensus verdict")
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"verdict":     v,
		"age_seconds": v.Age(h.clock.Now()).Seconds(),
	})
}

// Analyze runs an on-demand consensus pass, rate limited per symbol.
func (h *SignalsHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.gate.Allow(req.Symbol+"/analyze-api", AnalyzeRateLimit) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"rate_limited", "symbol", "analysis recently requested for this symbol", 429))
	}

	v, err := h.analyzer.AnalyzeWithNews(c.Request().Context(), req.Symbol, usecase.TriggerUser, req.News)
	if err != nil {
		if errors.Is(err, consensus.ErrAllProvidersFailed) {
			h.logger.Error("analyze: all providers failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError(
				"all_providers_failed", "", err.Error(), 502))
		}
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *SignalsHandler) Session(c echo.Context) error {
	now := h.clock.Now()
	return xhttp.SuccessResponse(c, echo.Map{
		"session": session.Classify(now, nil),
		"at":      now,
	})
}

func (h *SignalsHandler) Macro(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.macro.Current())
}

func (h *SignalsHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.history == nil {
		return xhttp.NotFoundResponse(c, "history storage not configured")
	}

	now := h.clock.Now()
	to := xhttp.ParseTimeDefault(req.To, now)
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, "from must be before to")
	}

	recs, err := h.history.QueryTicks(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *SignalsHandler) Health(c echo.Context) error {
	status := echo.Map{"status": "ok"}
	if h.history != nil {
		if err := h.history.Health(c.Request().Context()); err != nil {
			status["history"] = "unavailable"
		} else {
			status["history"] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, status)
}
