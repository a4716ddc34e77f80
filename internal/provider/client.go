// Package provider holds the server-side REST clients of the payment
// providers. Each provider call goes through its own circuit breaker over
// one shared, traced HTTP client.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrNotConfigured means the provider has no credentials.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrUnavailable covers transport failures, 5xx answers and an open circuit.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrRejected is a 4xx answer: the provider understood and refused.
	ErrRejected = errors.New("provider rejected request")
)

const maxBody = 1 << 20

// NewHTTPClient returns the client shared by every provider.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

type response struct {
	status int
	body   []byte
}

// caller executes provider requests behind a breaker. Only transport
// errors and 5xx answers count as failures.
type caller struct {
	name string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[response]
}

func newCaller(name string, hc *http.Client) *caller {
	return &caller{
		name: name,
		http: hc,
		cb: gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// a buyer closing the tab says nothing about the provider
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (c *caller) do(req *http.Request) ([]byte, error) {
	resp, err := c.cb.Execute(func() (response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return response{}, err
		}
		if r.StatusCode >= http.StatusInternalServerError {
			return response{}, fmt.Errorf("status %d", r.StatusCode)
		}
		return response{status: r.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.name, ErrUnavailable, err)
	}
	if resp.status >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s: %w: status %d: %s", c.name, ErrRejected, resp.status, truncate(resp.body))
	}
	return resp.body, nil
}

func truncate(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
