package api

import (
	"github.com/labstack/echo/v4"

	xhttp "SignalDesk/pkg/http"
)

// Router fans RegisterRoutes out to several handlers so the HTTP server
// only needs one entry point.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
