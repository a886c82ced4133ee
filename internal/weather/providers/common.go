package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/raincoat/internal/weather"
)

// Options configures a provider. Zero values fall back to defaults:
// http.DefaultClient, no retries and the provider's public endpoint.
type Options struct {
	Client     *http.Client
	MaxRetries int
	BaseURL    string
}

func (o Options) baseURL(def string) string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	return def
}

// upstream returns the HTTP endpoint guard for the provider called name.
func (o Options) upstream(name string) *upstream {
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	retries := o.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &upstream{
		client:     client,
		breaker:    newCircuitBreaker(name),
		retries:    retries,
		backoff:    500 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,

		// A bad ZIP or key is the caller's fault, not an outage.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && !se.transient())
		},
	})
}

// maxPayload caps how much of a response body is read.
const maxPayload = 4 << 20

var errEmptyPayload = errors.New("empty payload")

// statusError is a non-2xx answer from a weather service.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// upstream is one weather service endpoint behind a circuit breaker, with
// exponential backoff between retries.
type upstream struct {
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
}

// getJSON GETs rawURL and decodes the body into out. Transport errors, 429
// and 5xx answers are retried; anything else fails at once. Every failure
// is reported as weather.ErrUpstream.
func (u *upstream) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	delay := u.backoff
	for attempt := 0; ; attempt++ {
		body, err := u.get(ctx, rawURL)
		if err == nil {
			return decodePayload(body, out)
		}
		if !retryable(ctx, err) || attempt >= u.retries {
			return fmt.Errorf("%w: %v", weather.ErrUpstream, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", weather.ErrUpstream, ctx.Err())
		case <-timer.C:
		}
		if delay *= 2; delay > u.maxBackoff {
			delay = u.maxBackoff
		}
	}
}

// get performs a single attempt through the circuit breaker.
func (u *upstream) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	body, err := u.breaker.Execute(func() (interface{}, error) {
		resp, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayload))
			return nil, &statusError{code: resp.StatusCode}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open: %w", err)
		}
		return nil, err
	}
	return body.([]byte), nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.transient()
	}
	return true
}

func decodePayload(body []byte, out interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: %v", weather.ErrUpstream, errEmptyPayload)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", weather.ErrUpstream, err)
	}
	return nil
}

func upstreamError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", weather.ErrUpstream, fmt.Sprintf(format, args...))
}
