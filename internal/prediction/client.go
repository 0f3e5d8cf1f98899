// Package prediction forwards lever-simulation payloads to the external
// prediction model. The model is opaque: payloads and answers are relayed as
// raw JSON.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/metrics"
)

const (
	predictPath     = "/predict"
	maxResponseSize = 10 << 20
	maxErrorExcerpt = 512
)

// ErrNotConfigured is returned when no prediction URL is set
var ErrNotConfigured = errors.New(errors.ErrTypeUnavailable, "prediction service is not configured").
	WithSuggestion("Set AGROBENCH_PREDICTION_URL to the prediction model base URL")

// Client calls the prediction model over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client from the prediction configuration
func NewClient(cfg config.PredictionConfig) *Client {
	timeout := config.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether a prediction URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Predict posts payload to the model and returns its JSON answer
func (c *Client) Predict(ctx context.Context, payload json.RawMessage) (result json.RawMessage, err error) {
	defer func() { metrics.PredictionRequests.WithLabelValues(outcome(err)).Inc() }()

	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	if !json.Valid(payload) {
		return nil, errors.New(errors.ErrTypeValidation, "prediction payload is not valid JSON")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create prediction request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeUpstream, "failed to reach prediction service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeUpstream, "failed to read prediction response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf(errors.ErrTypeUpstream, "prediction service answered with status %d", resp.StatusCode).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", excerpt(body))
	}

	if !json.Valid(body) {
		return nil, errors.New(errors.ErrTypeUpstream, "prediction service returned invalid JSON").
			WithDetail("body", excerpt(body))
	}

	return json.RawMessage(body), nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	if e, ok := errors.As(err); ok {
		if status, ok := e.Details["status"].(int); ok {
			return strconv.Itoa(status)
		}

		return string(e.Type)
	}

	return "error"
}

func excerpt(body []byte) string {
	if len(body) > maxErrorExcerpt {
		return string(body[:maxErrorExcerpt]) + "..."
	}

	return string(body)
}
