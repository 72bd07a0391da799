package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RegisterRoutes registers the API under rg.
//
//	GET  /v1/catalog  - metric catalog
//	GET  /v1/rollup   - metric roll-up
//	POST /v1/compute  - compute metrics for a title and date range
//	POST /v1/ingest   - fetch and ingest a title at a date
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	v1 := rg.Group("/v1")
	{
		v1.GET("/catalog", h.HandleCatalog)
		v1.GET("/rollup", h.HandleRollup)
		v1.POST("/compute", h.HandleCompute)
		v1.POST("/ingest", h.HandleIngest)
	}
}

// NewRouter returns a gin engine serving the API, /healthz and /metrics.
func NewRouter(h *Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(&r.RouterGroup, h)
	return r
}

// requestLogger logs one line per request at Debug, or Warn for 5xx.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	}
}
