package config

// Settings represents the full configuration for one analytics client
type Settings struct {
	APIToken string       `yaml:"api_token,omitempty"` // Optional: falls back to CLOUDFLARE_API_TOKEN
	HTTP     HTTPSettings `yaml:"http,omitempty"`      // Optional HTTP tuning
	Retry    RetryConfig  `yaml:"retry,omitempty"`     // Optional retry policy
}

// HTTPSettings tunes the underlying HTTP client
type HTTPSettings struct {
	Timeout float64 `yaml:"timeout,omitempty"` // Per-request timeout in seconds (default 30)
}

// RetryConfig drives the retry transport
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts,omitempty"`       // Total attempts including the first (default 6)
	InitialBackoff    float64 `yaml:"initial_backoff,omitempty"`    // First retry delay in seconds (default 1)
	BackoffMultiplier float64 `yaml:"backoff_multiplier,omitempty"` // Delay growth factor (default 2)
	MaxBackoff        float64 `yaml:"max_backoff,omitempty"`        // Delay ceiling in seconds (default 32)
	RetryableStatuses []int   `yaml:"retryable_statuses,omitempty"` // Empty means every non-2xx status is retried
}

const (
	// DefaultMaxAttempts matches the upstream policy of 1 initial try plus 5 retries.
	DefaultMaxAttempts = 6

	// DefaultInitialBackoff is the first retry delay in seconds.
	DefaultInitialBackoff = 1

	// DefaultBackoffMultiplier doubles the delay on each retry.
	DefaultBackoffMultiplier = 2

	// DefaultMaxBackoff caps the retry delay in seconds.
	DefaultMaxBackoff = 32

	// DefaultHTTPTimeout is the per-request timeout in seconds.
	DefaultHTTPTimeout = 30
)

// DefaultRetryConfig returns the stock retry policy.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxBackoff:        DefaultMaxBackoff,
	}
}
