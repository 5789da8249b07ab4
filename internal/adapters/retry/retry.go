package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"time"

	"brandpulse/pkg/errors"
)

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of attempts after the first; zero disables retries
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns a single retry with exponential backoff
func DefaultConfig() Config {
	return Config{
		MaxRetries:   1,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// StatusError is an HTTP response the caller considers a failure
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "http status " + http.StatusText(e.Code) + ": " + e.Body
}

// StatusCode exposes the HTTP code for retry classification
func (e *StatusError) StatusCode() int { return e.Code }

// Middleware retries transient failures with exponential backoff
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 200 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	return &Middleware{config: config}
}

// Do executes fn, retrying retryable errors at most MaxRetries times
func (m *Middleware) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) || attempt == m.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(m.delay(attempt)):
		}
	}

	return lastErr
}

func (m *Middleware) delay(attempt int) time.Duration {
	d := time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	if d > m.config.MaxDelay {
		d = m.config.MaxDelay
	}
	return d
}

// Retryable reports whether err is transient: network timeouts, 429 and 5xx.
// Context errors and 4xx responses are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
