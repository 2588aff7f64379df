// Package server exposes the ticker widget over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *TickerHandler, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	r.GET("/api/ticker", h.GetTicker)
	r.POST("/api/ticker/refresh", h.PostRefresh)
	r.GET("/ticker", h.GetTickerHTML)
	r.GET("/go/:id", h.GoToItem)
	r.GET("/healthz", h.GetHealth)
	return r
}

type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func New(addr string, h *TickerHandler, allowOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h, allowOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With(zap.String("component", "http")),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
