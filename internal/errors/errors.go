package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeUnknownTable         ErrorType = "unknown_table"
	ErrTypeUnknownColumn        ErrorType = "unknown_column"
	ErrTypeUnknownJoinTable     ErrorType = "unknown_join_table"
	ErrTypeUnknownOperator      ErrorType = "unknown_operator"
	ErrTypeInvalidOperatorValue ErrorType = "invalid_operator_value"
	ErrTypeNonNumericField      ErrorType = "non_numeric_field"
	ErrTypeValidation           ErrorType = "validation"
	ErrTypeStorage              ErrorType = "storage"
	ErrTypeConfig               ErrorType = "config"
	ErrTypeUpstream             ErrorType = "upstream"
	ErrTypeUnavailable          ErrorType = "unavailable"
	ErrTypeRateLimited          ErrorType = "rate_limited"
	ErrTypeInternal             ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions.
// Details carries machine-readable context (offending field, valid columns)
// and is rendered verbatim in API error bodies.
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
	Details     map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithDetail attaches a key/value pair to the error details
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}

	e.Details[key] = value

	return e
}

// IsClientError reports whether the caller can fix the error by changing the request
func (e *Error) IsClientError() bool {
	status := statusFor(e.Type)
	return status >= 400 && status < 500
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// As returns the structured error in err's chain, if any
func As(err error) (*Error, bool) {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr, true
	}

	return nil, false
}

// HTTPStatus maps an error to the status code returned to API clients
func HTTPStatus(err error) int {
	return statusFor(GetType(err))
}

func statusFor(errType ErrorType) int {
	switch errType {
	case ErrTypeUnknownTable:
		return http.StatusNotFound
	case ErrTypeUnknownColumn, ErrTypeUnknownJoinTable, ErrTypeUnknownOperator,
		ErrTypeInvalidOperatorValue, ErrTypeNonNumericField, ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrTypeUpstream:
		return http.StatusBadGateway
	case ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}

// NewUnknownTable reports a table name absent from the registry
func NewUnknownTable(table string, available []string) *Error {
	return Newf(ErrTypeUnknownTable, "table %q does not exist (available tables: %s)",
		table, strings.Join(available, ", ")).
		WithDetail("table", table).
		WithDetail("availableTables", available)
}

// NewUnknownJoinTable reports a join filter whose source table is not registered
func NewUnknownJoinTable(table string, available []string) *Error {
	return Newf(ErrTypeUnknownJoinTable, "join table %q does not exist (available tables: %s)",
		table, strings.Join(available, ", ")).
		WithDetail("table", table).
		WithDetail("availableTables", available)
}

// NewUnknownColumn reports a field missing from a table and lists every valid column
func NewUnknownColumn(field, table string, available []string) *Error {
	err := Newf(ErrTypeUnknownColumn, "column %q does not exist on table %q (available columns: %s)",
		field, table, strings.Join(available, ", ")).
		WithDetail("field", field).
		WithDetail("table", table).
		WithDetail("availableColumns", available)
	err.Suggestions = append(err.Suggestions, available...)

	return err
}

// NewUnknownOperator reports an operator outside the supported set
func NewUnknownOperator(operator, field string, valid []string) *Error {
	return Newf(ErrTypeUnknownOperator, "operator %q on field %q is not supported (valid operators: %s)",
		operator, field, strings.Join(valid, ", ")).
		WithDetail("operator", operator).
		WithDetail("field", field).
		WithDetail("validOperators", valid)
}

// NewInvalidOperatorValue reports a value whose shape does not fit the operator
func NewInvalidOperatorValue(field, operator, reason string) *Error {
	return Newf(ErrTypeInvalidOperatorValue, "invalid value for operator %q on field %q: %s",
		operator, field, reason).
		WithDetail("operator", operator).
		WithDetail("field", field)
}

// NewNonNumericField reports a numeric-only aggregation requested on another type
func NewNonNumericField(table, field, actualType string) *Error {
	return Newf(ErrTypeNonNumericField, "field %q on table %q has type %s, a number is required",
		field, table, actualType).
		WithDetail("table", table).
		WithDetail("field", field).
		WithDetail("type", actualType)
}
