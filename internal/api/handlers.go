// Package api exposes the query engine over HTTP with gin
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/service"
	"github.com/agrobench/agrobench/internal/types"
)

// Predictor forwards simulation payloads to the prediction model
type Predictor interface {
	Predict(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// Pinger checks that storage is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the API routes
type Handler struct {
	service   *service.Service
	predictor Predictor
	db        Pinger
}

// NewHandler creates a Handler. predictor and db may be nil.
func NewHandler(svc *service.Service, predictor Predictor, db Pinger) *Handler {
	return &Handler{service: svc, predictor: predictor, db: db}
}

// Health reports whether the service can reach storage
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			logging.GetLogger().ErrorWithErr("Health check failed", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListTables handles GET /api/tables
func (h *Handler) ListTables(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListTables())
}

// DescribeTable handles GET /api/tables/:name
func (h *Handler) DescribeTable(c *gin.Context) {
	desc, err := h.service.DescribeTable(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, desc)
}

// Query handles POST /api/query
func (h *Handler) Query(c *gin.Context) {
	var req types.QueryRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.service.Query(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Median handles POST /api/query/median
func (h *Handler) Median(c *gin.Context) {
	var req types.MedianRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.service.Median(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Frequency handles POST /api/query/frequency
func (h *Handler) Frequency(c *gin.Context) {
	var req types.FrequencyRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.service.Frequency(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Predict handles POST /api/prediction by relaying the body to the model
func (h *Handler) Predict(c *gin.Context) {
	if h.predictor == nil {
		writeError(c, errors.New(errors.ErrTypeUnavailable, "prediction service is not configured"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		writeError(c, errors.Wrap(err, errors.ErrTypeValidation, "failed to read request body"))
		return
	}

	if len(body) > maxBodySize {
		writeError(c, errors.New(errors.ErrTypeValidation, "request body too large"))
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

type errorBody struct {
	Type        string         `json:"type"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// writeError renders err as the API error body with its mapped status
func writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	body := errorBody{Type: string(errors.GetType(err)), Message: "internal server error"}

	structErr, ok := errors.As(err)
	if ok {
		body.Message = structErr.Message
		body.Details = structErr.Details
		body.Suggestions = structErr.Suggestions
	}

	logger := logging.WithField("request_id", c.GetString(requestIDKey))
	if ok && structErr.IsClientError() {
		logger.WithError(err).Debug("Request rejected")
	} else {
		logger.ErrorWithErr("Request error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
