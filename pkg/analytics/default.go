package analytics

import (
	"fmt"
	"os"
	"sync"

	"github.com/saturnines/cloudflare-analytics/pkg/errors"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the shared process-wide client, creating it on first use.
// An empty apiToken falls back to the CLOUDFLARE_API_TOKEN environment
// variable.
//
// First call wins: once the shared client exists it is returned as-is and the
// apiToken argument is ignored, even when it differs from the token the
// client was built with. This matches the historical behavior; callers that
// need several tokens should construct clients with NewClient instead.
func Default(apiToken string) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return defaultClient, nil
	}

	token := apiToken
	if token == "" {
		token = os.Getenv(EnvAPIToken)
	}
	if token == "" {
		return nil, errors.WrapError(
			fmt.Errorf("API token must be provided or set via %s", EnvAPIToken),
			errors.ErrConfiguration,
			"default analytics client",
		)
	}

	client, err := NewClient(token)
	if err != nil {
		return nil, err
	}
	defaultClient = client

	return defaultClient, nil
}

// ResetDefault clears the shared client so the next Default call rebuilds it.
// Intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = nil
}
