// Package analytics is a client for the Cloudflare GraphQL Analytics API.
//
// API docs: https://developers.cloudflare.com/analytics/graphql-api/
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/cloudflare-analytics/pkg/auth"
	"github.com/saturnines/cloudflare-analytics/pkg/config"
	"github.com/saturnines/cloudflare-analytics/pkg/core"
	"github.com/saturnines/cloudflare-analytics/pkg/errors"
	"github.com/saturnines/cloudflare-analytics/pkg/transport/graphql"
)

const (
	// DefaultBaseURL is the Cloudflare API v4 root. The GraphQL endpoint
	// lives at <base>/graphql.
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"

	// EnvAPIToken is the environment variable consulted when no token is
	// passed to Default.
	EnvAPIToken = "CLOUDFLARE_API_TOKEN"
)

// GraphQLResponse is the raw GraphQL envelope. Data and Errors are both
// optional and passed through uninterpreted; a populated Errors field is a
// successful call at this layer, the caller decides what to do with it.
type GraphQLResponse struct {
	Data   map[string]interface{}   `json:"data,omitempty"`
	Errors []map[string]interface{} `json:"errors,omitempty"`
}

// Client issues authenticated queries against the analytics API.
type Client struct {
	apiToken   string
	baseURL    string
	auth       *auth.BearerAuth
	gql        *graphql.Client
	httpClient *http.Client
	retryCfg   *config.RetryConfig
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a Client for the given API token. The token is required;
// no network access happens here.
func NewClient(apiToken string, options ...Option) (*Client, error) {
	if apiToken == "" {
		return nil, errors.WrapError(
			fmt.Errorf("API token must be provided"),
			errors.ErrConfiguration,
			"new analytics client",
		)
	}

	client := &Client{
		apiToken: apiToken,
		baseURL:  DefaultBaseURL,
		retryCfg: config.DefaultRetryConfig(),
		timeout:  config.DefaultHTTPTimeout * time.Second,
		logger:   zap.NewNop(),
	}

	// apply all options from config
	for _, option := range options {
		option(client)
	}

	client.auth = auth.NewBearerAuth(apiToken)

	if client.httpClient == nil {
		transport := core.NewRetryTransport(nil, client.retryCfg, client.logger)
		transport.AttemptTimeout = client.timeout
		client.httpClient = &http.Client{Transport: transport}
	}
	client.gql = graphql.NewClient(client.httpClient)

	return client, nil
}

// NewClientFromSettings builds a Client from a loaded Settings config.
// Explicit options override the settings file.
func NewClientFromSettings(settings *config.Settings, options ...Option) (*Client, error) {
	if settings == nil {
		return nil, errors.WrapError(
			fmt.Errorf("settings must not be nil"),
			errors.ErrConfiguration,
			"new analytics client",
		)
	}

	// Fill gaps so a hand-built Settings behaves like a loaded one
	resolved := *settings
	(&config.SettingsDefaults{}).SetDefaults(&resolved)

	opts := []Option{
		WithRetryConfig(&resolved.Retry),
		WithTimeout(time.Duration(resolved.HTTP.Timeout * float64(time.Second))),
	}
	opts = append(opts, options...)

	return NewClient(resolved.APIToken, opts...)
}

// APIToken returns the credential this client was built with.
func (c *Client) APIToken() string {
	return c.apiToken
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query executes a GraphQL query with optional variables. An empty or nil
// variables map is treated as "no variables" and the key is omitted from the
// request body.
func (c *Client) Query(query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	return c.QueryContext(context.Background(), query, variables)
}

// QueryContext is Query with caller-controlled cancellation. Transport
// failures are retried per the client's retry policy and, once exhausted,
// returned to the caller unmodified. GraphQL-level errors in the response
// are not Go errors; inspect GraphQLResponse.Errors.
func (c *Client) QueryContext(ctx context.Context, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	builder := graphql.NewBuilder(c.baseURL+"/graphql", query, variables, nil, c.auth)

	req, err := builder.Build(ctx)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "build graphql request")
	}

	c.logger.Debug("cloudflare graphql request",
		zap.String("url", req.URL.String()),
	)

	resp, err := c.gql.Execute(req)
	if err != nil {
		// Propagate the transport failure as-is
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "read graphql response")
	}

	var result GraphQLResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		// A body that isn't JSON is a server bug, not a transient fault;
		// it is never retried.
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "decode graphql response")
	}

	c.logger.Debug("cloudflare graphql response",
		zap.Int("status", resp.StatusCode),
	)

	return &result, nil
}
