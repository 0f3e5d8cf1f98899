package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeValidation, "limit must be >= 0, got %d", -1)

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "limit must be >= 0, got -1", err.Message)
	assert.NoError(t, err.Cause)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(originalErr, ErrTypeStorage, "failed to count rows of %s", "farms")

	assert.Equal(t, ErrTypeStorage, wrappedErr.Type)
	assert.Equal(t, "failed to count rows of farms", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Unwrap())
	assert.ErrorIs(t, wrappedErr, originalErr)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrTypeValidation, "offset must be >= 0"),
			expected: "validation: offset must be >= 0",
		},
		{
			name:     "error with cause",
			err:      Wrap(errors.New("io timeout"), ErrTypeStorage, "query failed"),
			expected: "storage: query failed (caused by: io timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	structErr := NewUnknownTable("crops", []string{"farms"})
	wrapped := fmt.Errorf("failed to run query: %w", structErr)

	assert.True(t, IsType(wrapped, ErrTypeUnknownTable))
	assert.False(t, IsType(wrapped, ErrTypeUnknownColumn))
	assert.False(t, IsType(errors.New("plain"), ErrTypeUnknownTable))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, structErr, got)
}

func TestNewUnknownColumn(t *testing.T) {
	available := []string{"id", "name", "region"}
	err := NewUnknownColumn("regoin", "farms", available)

	assert.Equal(t, ErrTypeUnknownColumn, err.Type)
	assert.Contains(t, err.Message, `"regoin"`)
	assert.Contains(t, err.Message, `"farms"`)
	assert.Contains(t, err.Message, "id, name, region")
	assert.Equal(t, available, err.Details["availableColumns"])
	assert.Equal(t, "regoin", err.Details["field"])
	assert.Equal(t, available, err.Suggestions)
}

func TestConstructorsMessages(t *testing.T) {
	assert.Contains(t, NewUnknownTable("crops", []string{"farms", "plots"}).Message, "farms, plots")
	assert.Contains(t, NewUnknownJoinTable("sdcs", []string{"sdc"}).Message, `"sdcs"`)
	assert.Contains(t, NewUnknownOperator("between", "yieldTHa", []string{"eq"}).Message, `"between"`)
	assert.Contains(t, NewInvalidOperatorValue("crop", "in", "an array is required").Message, "an array is required")
	assert.Contains(t, NewNonNumericField("farms", "name", "string").Message, "string")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{NewUnknownTable("x", nil), http.StatusNotFound},
		{NewUnknownColumn("x", "farms", nil), http.StatusBadRequest},
		{NewUnknownJoinTable("x", nil), http.StatusBadRequest},
		{NewUnknownOperator("x", "id", nil), http.StatusBadRequest},
		{NewInvalidOperatorValue("id", "in", "array"), http.StatusBadRequest},
		{NewNonNumericField("farms", "name", "string"), http.StatusBadRequest},
		{New(ErrTypeValidation, "bad"), http.StatusBadRequest},
		{New(ErrTypeUpstream, "bad gateway"), http.StatusBadGateway},
		{New(ErrTypeUnavailable, "down"), http.StatusServiceUnavailable},
		{New(ErrTypeRateLimited, "slow down"), http.StatusTooManyRequests},
		{Wrap(errors.New("boom"), ErrTypeStorage, "failed"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(GetType(tt.err)), func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, NewUnknownColumn("x", "farms", nil).IsClientError())
	assert.False(t, New(ErrTypeStorage, "down").IsClientError())
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")

	err = NewConfigError("failed to load", "")
	assert.Equal(t, "failed to load", err.Message)
}
