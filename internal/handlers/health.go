package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type connectionCounter interface {
	Count() int
}

type HealthHandler struct {
	store pinger
	conns connectionCounter
}

func NewHealthHandler(store pinger, conns connectionCounter) *HealthHandler {
	return &HealthHandler{store: store, conns: conns}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":           status,
		"service":          "notifier",
		"live_connections": h.conns.Count(),
	})
}
