package analytics

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/cloudflare-analytics/pkg/config"
)

// Option defines config for Client
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests pointing at a mock
// server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient supplies a fully custom HTTP client. The retry transport is
// not installed in this case; the caller owns the whole stack.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg *config.RetryConfig) Option {
	return func(c *Client) {
		if cfg != nil {
			c.retryCfg = cfg
		}
	}
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
