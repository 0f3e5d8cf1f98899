package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// PredictionStub is an httptest server standing in for the prediction model.
// It answers every request with a fixed status and body and records what it
// received.
type PredictionStub struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []RecordedRequest
}

// RecordedRequest is one call received by the stub
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

// NewPredictionStub starts a stub answering status and body. It is closed
// when the test ends.
func NewPredictionStub(t *testing.T, status int, body string) *PredictionStub {
	t.Helper()

	stub := &PredictionStub{status: status, body: body}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.Close)

	return stub
}

func (s *PredictionStub) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(data),
	})
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// Requests returns a copy of the recorded calls
func (s *PredictionStub) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}
