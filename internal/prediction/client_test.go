package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/testutil"
)

func TestPredictForwardsPayload(t *testing.T) {
	stub := testutil.NewPredictionStub(t, http.StatusOK, `{"yield": 7.4, "grossMargin": 612}`)
	client := NewClient(config.PredictionConfig{URL: stub.URL + "/", Timeout: "2s"})

	result, err := client.Predict(context.Background(), json.RawMessage(`{"levers":{"nitrogen":-20}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"yield": 7.4, "grossMargin": 612}`, string(result))

	requests := stub.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "/predict", requests[0].Path)
	assert.Equal(t, "application/json", requests[0].ContentType)
	assert.JSONEq(t, `{"levers":{"nitrogen":-20}}`, requests[0].Body)
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		payload string
		errType errors.ErrorType
	}{
		{name: "upstream failure", status: http.StatusInternalServerError, body: `{"detail":"model crashed"}`, payload: `{}`, errType: errors.ErrTypeUpstream},
		{name: "upstream rejects payload", status: http.StatusUnprocessableEntity, body: `{}`, payload: `{}`, errType: errors.ErrTypeUpstream},
		{name: "invalid upstream json", status: http.StatusOK, body: `not json`, payload: `{}`, errType: errors.ErrTypeUpstream},
		{name: "invalid payload", status: http.StatusOK, body: `{}`, payload: `{"levers":`, errType: errors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := testutil.NewPredictionStub(t, tt.status, tt.body)
			client := NewClient(config.PredictionConfig{URL: stub.URL})

			_, err := client.Predict(context.Background(), json.RawMessage(tt.payload))
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.GetType(err))
		})
	}
}

func TestPredictCarriesUpstreamStatus(t *testing.T) {
	stub := testutil.NewPredictionStub(t, http.StatusBadRequest, `{"detail":"unknown lever"}`)

	_, err := NewClient(config.PredictionConfig{URL: stub.URL}).Predict(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)

	structErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, structErr.Details["status"])
	assert.Contains(t, structErr.Details["body"], "unknown lever")
	assert.Equal(t, http.StatusBadGateway, errors.HTTPStatus(err))
}

func TestPredictNotConfigured(t *testing.T) {
	client := NewClient(config.PredictionConfig{})
	assert.False(t, client.Configured())

	_, err := client.Predict(context.Background(), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, http.StatusServiceUnavailable, errors.HTTPStatus(err))
}

func TestPredictUnreachable(t *testing.T) {
	stub := testutil.NewPredictionStub(t, http.StatusOK, `{}`)
	url := stub.URL
	stub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), testutil.ShortTestTimeout)
	defer cancel()

	_, err := NewClient(config.PredictionConfig{URL: url, Timeout: time.Second.String()}).Predict(ctx, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
}
