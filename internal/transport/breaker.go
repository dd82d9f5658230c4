package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// errServerFailure marks 5xx responses so the breaker counts them without the
// response itself being discarded.
var errServerFailure = errors.New("upstream server failure")

// ErrBreakerOpen is returned while the breaker rejects requests outright.
// Distinct from a backend error: nothing was sent upstream.
var ErrBreakerOpen = errors.New("backend circuit open")

// NewBreakerTransport wraps inner with a circuit breaker. Transport errors
// and 5xx responses count as failures; five consecutive failures open the
// circuit for 30 seconds. While open, requests fail fast with ErrBreakerOpen.
//
// The gateway never retries (callers decide), and the breaker does not change
// that: it only refuses to send requests that would pile onto a down backend.
func NewBreakerTransport(inner http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "commerce-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &breakerTransport{inner: inner, cb: cb}
}

type breakerTransport struct {
	inner http.RoundTripper
	cb    *gobreaker.CircuitBreaker[*http.Response]
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.inner.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			// Counted as a failure, but the response still reaches the caller.
			return resp, errServerFailure
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, errServerFailure):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, ErrBreakerOpen
	default:
		return resp, err
	}
}
