package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"binanceTracker/internal/ports"
)

// Constants
const (
	ServiceName         = "binance-tracker"
	ServiceVersion      = "1.0.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	shutdownTimeout     = 5 * time.Second
)

// APIHandler serves the latest market snapshot over HTTP using Gin.
type APIHandler struct {
	store     *SnapshotStore
	refresher ports.Refresher
	logger    ports.Logger
}

// NewAPIHandler creates a new API handler. refresher may be nil, in which case
// POST /refresh answers 501.
func NewAPIHandler(store *SnapshotStore, refresher ports.Refresher, logger ports.Logger) *APIHandler {
	return &APIHandler{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/snapshot", h.GetSnapshot)
	router.GET("/depth", h.GetDepth)
	router.GET("/candles", h.GetCandles)
	router.POST("/refresh", h.Refresh)
	router.GET("/health", h.HealthCheck)

	return router
}

// StartServer serves the API on addr until ctx is canceled, then shuts the
// server down gracefully.
func (h *APIHandler) StartServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info(ctx, "HTTP API listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	h.logger.Info(context.Background(), "HTTP API stopped")
	return nil
}
