package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsticker/internal/render"
	"newsticker/internal/settings"
	"newsticker/internal/ticker"
)

// TickerSource is the widget as seen by HTTP handlers.
type TickerSource interface {
	State() ticker.State
	Snapshot() render.View
	Refresh(ctx context.Context) error
}

type TickerHandler struct {
	ticker TickerSource
	logger *zap.Logger
}

func NewTickerHandler(src TickerSource, logger *zap.Logger) *TickerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickerHandler{ticker: src, logger: logger.With(zap.String("component", "http"))}
}

func (h *TickerHandler) GetTicker(c *gin.Context) {
	c.JSON(http.StatusOK, h.ticker.Snapshot())
}

func (h *TickerHandler) GetTickerHTML(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := render.NewHTML(c.Writer).Render(h.ticker.Snapshot()); err != nil {
		h.logger.Error("Rendering ticker html failed", zap.Error(err))
	}
}

func (h *TickerHandler) PostRefresh(c *gin.Context) {
	err := h.ticker.Refresh(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.ticker.Snapshot())
	case errors.Is(err, settings.ErrConfiguration):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "News ticker is not configured"})
	case errors.Is(err, ticker.ErrDisposed), errors.Is(err, ticker.ErrNotStarted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "News ticker is not running"})
	default:
		h.logger.Error("Manual refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refresh failed"})
	}
}

// GoToItem redirects to an item's source without leaking this page as the
// referrer.
func (h *TickerHandler) GoToItem(c *gin.Context) {
	e, ok := h.ticker.Snapshot().Find(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "News item not found"})
		return
	}
	c.Header("Referrer-Policy", "no-referrer")
	c.Redirect(http.StatusFound, e.URL)
}

func (h *TickerHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": h.ticker.State().String()})
}
