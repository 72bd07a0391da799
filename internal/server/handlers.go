// Package server exposes the engine over HTTP with gin.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
	"github.com/roach88/cfrstat/internal/metric"
)

// Engine is the part of *engine.Engine the handlers use.
type Engine interface {
	Catalog() *metric.Catalog
	Rollup(ctx context.Context, req engine.RollupRequest) ([]cfr.RollupRow, error)
	ComputeMetrics(ctx context.Context, title int, start, end time.Time) (engine.ComputeStats, error)
	IngestFile(ctx context.Context, title int, date time.Time, path string) (engine.IngestStats, error)
	ReloadFile(ctx context.Context, title int, date time.Time, path string) (engine.IngestStats, error)
}

// Fetcher acquires title XML. *ecfr.Client implements it.
type Fetcher interface {
	FetchTitleXML(ctx context.Context, title int, date time.Time) (string, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RollupParams are the query parameters of GET /v1/rollup.
type RollupParams struct {
	Metric   string `form:"metric" binding:"required"`
	Level    string `form:"level" binding:"required"`
	Start    string `form:"start" binding:"required"`
	End      string `form:"end" binding:"required"`
	Agencies string `form:"agencies" binding:"required"`
}

// ComputeRequest is the body of POST /v1/compute.
type ComputeRequest struct {
	Title int    `json:"title" binding:"required,min=1"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// IngestRequest is the body of POST /v1/ingest.
type IngestRequest struct {
	Title  int    `json:"title" binding:"required,min=1"`
	Date   string `json:"date" binding:"required"`
	Reload bool   `json:"reload"`
}

// Handlers serves the HTTP API.
type Handlers struct {
	engine  Engine
	fetcher Fetcher
	logger  *zap.Logger
}

// NewHandlers creates Handlers. With a nil fetcher POST /v1/ingest answers
// 503.
func NewHandlers(e Engine, fetcher Fetcher, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{engine: e, fetcher: fetcher, logger: logger}
}

// HandleCatalog handles GET /v1/catalog.
func (h *Handlers) HandleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Catalog().All())
}

// HandleRollup handles GET /v1/rollup.
func (h *Handlers) HandleRollup(c *gin.Context) {
	var params RollupParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.badRequest(c, "INVALID_REQUEST", err)
		return
	}

	start, end, ok := h.parseRange(c, params.Start, params.End)
	if !ok {
		return
	}

	rows, err := h.engine.Rollup(c.Request.Context(), engine.RollupRequest{
		Metric:   params.Metric,
		Agencies: strings.Split(params.Agencies, ","),
		Level:    params.Level,
		Start:    start,
		End:      end,
	})
	if err != nil {
		h.fail(c, "rollup failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleCompute handles POST /v1/compute.
func (h *Handlers) HandleCompute(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", err)
		return
	}

	start, end, ok := h.parseRange(c, req.Start, req.End)
	if !ok {
		return
	}

	stats, err := h.engine.ComputeMetrics(c.Request.Context(), req.Title, start, end)
	if err != nil {
		h.fail(c, "compute failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleIngest handles POST /v1/ingest: fetch the document if it is not
// cached, then ingest (or reload) it.
func (h *Handlers) HandleIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", err)
		return
	}
	date, err := cfr.ParseDate(req.Date)
	if err != nil {
		h.badRequest(c, "INVALID_DATE", err)
		return
	}
	if h.fetcher == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "document acquisition is not configured",
			Code:  "FETCH_UNAVAILABLE",
		})
		return
	}

	ctx := c.Request.Context()
	path, err := h.fetcher.FetchTitleXML(ctx, req.Title, date)
	if err != nil {
		h.logger.Error("fetch failed", zap.Int("title", req.Title), zap.String("date", req.Date), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "FETCH_FAILED"})
		return
	}

	var stats engine.IngestStats
	if req.Reload {
		stats, err = h.engine.ReloadFile(ctx, req.Title, date, path)
	} else {
		stats, err = h.engine.IngestFile(ctx, req.Title, date, path)
	}
	if err != nil {
		h.fail(c, "ingest failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) parseRange(c *gin.Context, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	start, err := cfr.ParseDate(rawStart)
	if err != nil {
		h.badRequest(c, "INVALID_DATE", err)
		return time.Time{}, time.Time{}, false
	}
	end, err := cfr.ParseDate(rawEnd)
	if err != nil {
		h.badRequest(c, "INVALID_DATE", err)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handlers) badRequest(c *gin.Context, code string, err error) {
	h.logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code})
}

// fail maps engine input errors to 400 and anything else to 500.
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	if code, ok := engine.InputErrorCodeOf(err); ok {
		h.logger.Warn(msg, zap.String("code", string(code)), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: string(code)})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
}
