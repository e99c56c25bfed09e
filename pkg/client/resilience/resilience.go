// Package resilience protects outbound HTTP calls with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// serverError marks a 5xx answer so the breaker counts it as a failure.
// It never leaves this package: the response itself is handed back to the caller.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d", e.status)
}

// NewCircuitBreaker builds a breaker that trips on transport errors and 5xx responses.
// Client errors (4xx) and caller cancellation are business outcomes and do not count as failures.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	}
	return gobreaker.NewCircuitBreaker[*http.Response](st)
}

type breakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewTransport wraps next so every round trip goes through the breaker.
// While the breaker is open, requests fail immediately with gobreaker.ErrOpenState.
func NewTransport(next http.RoundTripper, breaker *gobreaker.CircuitBreaker[*http.Response]) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &breakerTransport{next: next, breaker: breaker}
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})
	var se *serverError
	if errors.As(err, &se) {
		return resp, nil
	}
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}
