package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/cloudflare-analytics/pkg/config"
)

// HTTPError wraps HTTP error responses
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

type RetryTransport struct {
	Base   http.RoundTripper
	Cfg    *config.RetryConfig
	Logger *zap.Logger

	// AttemptTimeout bounds each individual attempt, not the whole retry
	// loop. A client-level timeout would span the backoff sleeps and cut
	// the later attempts off.
	AttemptTimeout time.Duration
}

// NewRetryTransport creates a new retry transport
func NewRetryTransport(base http.RoundTripper, cfg *config.RetryConfig, logger *zap.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg == nil {
		cfg = config.DefaultRetryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryTransport{
		Base:   base,
		Cfg:    cfg,
		Logger: logger,
	}
}

// RoundTrip retries transport-level failures up to Cfg.MaxAttempts. GraphQL
// queries are read-only, so POST is as safe to repeat as GET here. The last
// failure is returned as-is so callers see the original error, not a
// retries-exhausted wrapper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	maxAttempts := t.Cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		// Clone request so the body can be replayed on the next attempt
		req2 := t.cloneRequest(req)

		cancel := context.CancelFunc(func() {})
		if t.AttemptTimeout > 0 {
			var attemptCtx context.Context
			attemptCtx, cancel = context.WithTimeout(req.Context(), t.AttemptTimeout)
			req2 = req2.WithContext(attemptCtx)
		}

		resp, err := t.Base.RoundTrip(req2)

		if err != nil {
			cancel()
			// A cancelled parent context is the caller giving up, not a
			// flaky network; an expired attempt timeout is retryable.
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, err
			}
			lastErr = err
		} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// Keep the attempt context alive until the body is consumed
			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		} else {
			resp.Body.Close()
			cancel()
			httpErr := &HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
			}
			if !t.retryableStatus(resp.StatusCode) {
				return nil, httpErr
			}
			lastErr = httpErr
		}

		// Don't wait after the last attempt
		if attempt < maxAttempts-1 {
			delay := t.backoff(attempt)

			t.Logger.Info("retrying request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr),
			)

			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
				// Continue to next attempt
			}
		}
	}

	return nil, lastErr
}

// cancelBody releases the attempt context when the response body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// cloneRequest makes a deep copy for safe body reuse
func (t *RetryTransport) cloneRequest(r *http.Request) *http.Request {
	r2 := r.Clone(r.Context())
	if r.Body != nil {
		buf, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r2.Body = io.NopCloser(bytes.NewReader(buf))
	}
	return r2
}

// backoff computes deterministic exponential backoff. No jitter: callers time
// against the 1, 2, 4, 8, 16 second ladder.
func (t *RetryTransport) backoff(attempt int) time.Duration {
	base := time.Duration(t.Cfg.InitialBackoff * float64(time.Second))

	delay := time.Duration(float64(base) * math.Pow(t.Cfg.BackoffMultiplier, float64(attempt)))

	maxDelay := time.Duration(t.Cfg.MaxBackoff * float64(time.Second))
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}

// retryableStatus reports whether a non-2xx status should be retried. An
// empty RetryableStatuses list means every non-2xx status is retryable.
func (t *RetryTransport) retryableStatus(status int) bool {
	if len(t.Cfg.RetryableStatuses) == 0 {
		return true
	}
	for _, s := range t.Cfg.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
