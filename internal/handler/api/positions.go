package api

import (
	models "SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PositionsHandler manages the open-position book over HTTP. The risk
// monitor reads whatever is set here on every tick.
type PositionsHandler struct {
	logger *xlogger.Logger
	book   *usecase.PositionBook
}

func NewPositionsHandler(logger *xlogger.Logger, book *usecase.PositionBook) *PositionsHandler {
	return &PositionsHandler{logger: logger, book: book}
}

func (h *PositionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.PUT("/position", h.Set)
	g.GET("/position", h.Get)
}

// Set records or clears a position. Zero shares clears.
func (h *PositionsHandler) Set(c echo.Context) error {
	req := &models.PositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pos := &models.Position{Shares: req.Shares, AvgPrice: req.AvgPrice}
	if err := h.book.Set(c.Request().Context(), req.Symbol, pos); err != nil {
		h.logger.Error("position set error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"symbol": req.Symbol, "shares": req.Shares})
}

func (h *PositionsHandler) Get(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pos := h.book.Get(req.Symbol)
	if pos == nil {
		return xhttp.SuccessResponse(c, echo.Map{"symbol": req.Symbol, "flat": true})
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"symbol":    req.Symbol,
		"shares":    pos.Shares,
		"avg_price": pos.AvgPrice,
	})
}
