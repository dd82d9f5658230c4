package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

// scriptedTransport returns canned results in sequence.
type scriptedTransport struct {
	statuses []int // 0 means transport error
	calls    int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	status := s.statuses[s.calls]
	s.calls++
	if status == 0 {
		return nil, errors.New("dial tcp: connection refused")
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     http.Header{},
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://shop.example/api/v1/products/all", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return req
}

func TestBreakerTransport_PassesThroughSuccess(t *testing.T) {
	inner := &scriptedTransport{statuses: []int{200}}
	bt := NewBreakerTransport(inner, discardLogger())

	resp, err := bt.RoundTrip(newRequest(t))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBreakerTransport_ServerFailureStillDelivered(t *testing.T) {
	// 5xx counts against the breaker but the response must reach the caller:
	// the gateway owns error mapping, not the transport.
	inner := &scriptedTransport{statuses: []int{503}}
	bt := NewBreakerTransport(inner, discardLogger())

	resp, err := bt.RoundTrip(newRequest(t))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v, want response delivered", err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestBreakerTransport_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedTransport{statuses: []int{0, 0, 0, 0, 0, 200}}
	bt := NewBreakerTransport(inner, discardLogger())

	for i := 0; i < 5; i++ {
		if _, err := bt.RoundTrip(newRequest(t)); err == nil {
			t.Fatalf("call %d: expected transport error", i)
		}
	}

	// Circuit is now open: the sixth call must fail fast without reaching
	// the inner transport.
	_, err := bt.RoundTrip(newRequest(t))
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("error = %v, want ErrBreakerOpen", err)
	}
	if inner.calls != 5 {
		t.Errorf("inner calls = %d, want 5 (open circuit must not forward)", inner.calls)
	}
}

func TestBreakerTransport_4xxIsNotAFailure(t *testing.T) {
	statuses := make([]int, 10)
	for i := range statuses {
		statuses[i] = 404
	}
	inner := &scriptedTransport{statuses: statuses}
	bt := NewBreakerTransport(inner, discardLogger())

	for i := 0; i < 10; i++ {
		resp, err := bt.RoundTrip(newRequest(t))
		if err != nil {
			t.Fatalf("call %d: error = %v, want 404 response (4xx must not trip breaker)", i, err)
		}
		if resp.StatusCode != 404 {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	}
}
