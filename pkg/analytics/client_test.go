package analytics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/saturnines/cloudflare-analytics/pkg/config"
	"github.com/saturnines/cloudflare-analytics/pkg/core"
	"github.com/saturnines/cloudflare-analytics/pkg/errors"
)

func fastRetry() *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:       6,
		InitialBackoff:    0.000001,
		BackoffMultiplier: 2,
		MaxBackoff:        0.00001,
	}
}

func TestNewClient_EmptyToken(t *testing.T) {
	_, err := NewClient("")
	if err == nil {
		t.Fatal("Expected error for empty token")
	}
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestNewClient_StoresToken(t *testing.T) {
	client, err := NewClient("test_token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.APIToken() != "test_token" {
		t.Errorf("Expected token 'test_token', got '%s'", client.APIToken())
	}
	if client.BaseURL() != "https://api.cloudflare.com/client/v4" {
		t.Errorf("Unexpected base URL: %s", client.BaseURL())
	}
}

func TestQuery_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/graphql" {
			t.Errorf("Expected path /graphql, got %s", r.URL.Path)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query string, got %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
			t.Errorf("Expected 'Bearer test_token', got '%s'", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{"viewer": map[string]interface{}{"accounts": []interface{}{}}},
			"errors": nil,
		})
	}))
	defer server.Close()

	client, err := NewClient("test_token", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.Query("query { viewer { accounts { id } } }", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	want := map[string]interface{}{"viewer": map[string]interface{}{"accounts": []interface{}{}}}
	if !reflect.DeepEqual(resp.Data, want) {
		t.Errorf("Expected data %v, got %v", want, resp.Data)
	}
	if resp.Errors != nil {
		t.Errorf("Expected nil errors, got %v", resp.Errors)
	}
}

func TestQuery_GraphQLErrorsAreData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": null, "errors": [{"message": "Authentication required"}]}`))
	}))
	defer server.Close()

	client, _ := NewClient("test_token", WithBaseURL(server.URL))

	resp, err := client.Query("query { viewer { accounts { id } } }", nil)
	if err != nil {
		t.Fatalf("GraphQL-level errors must not fail the call: %v", err)
	}
	if resp.Data != nil {
		t.Errorf("Expected nil data, got %v", resp.Data)
	}
	if len(resp.Errors) != 1 || resp.Errors[0]["message"] != "Authentication required" {
		t.Errorf("Expected passthrough errors, got %v", resp.Errors)
	}
}

func TestQuery_VariablesWireFormat(t *testing.T) {
	var lastBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		lastBody.Store(raw)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client, _ := NewClient("test_token", WithBaseURL(server.URL))

	decode := func(t *testing.T) map[string]interface{} {
		t.Helper()
		var body map[string]interface{}
		if err := json.Unmarshal(lastBody.Load().([]byte), &body); err != nil {
			t.Fatalf("Request body is not valid JSON: %v", err)
		}
		return body
	}

	t.Run("NilVariablesOmitted", func(t *testing.T) {
		if _, err := client.Query("{ viewer }", nil); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if _, present := decode(t)["variables"]; present {
			t.Error("variables key should be absent for nil variables")
		}
	})

	t.Run("EmptyVariablesOmitted", func(t *testing.T) {
		if _, err := client.Query("{ viewer }", map[string]interface{}{}); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if _, present := decode(t)["variables"]; present {
			t.Error("variables key should be absent for an empty map")
		}
	})

	t.Run("VariablesSent", func(t *testing.T) {
		if _, err := client.Query("{ viewer }", map[string]interface{}{"id": "123"}); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		want := map[string]interface{}{"id": "123"}
		if got := decode(t)["variables"]; !reflect.DeepEqual(got, want) {
			t.Errorf("Expected variables %v, got %v", want, got)
		}
	})
}

func TestQuery_RetryExhaustion(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewClient("test_token", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))

	_, err := client.Query("{ viewer }", nil)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}

	if got := atomic.LoadInt32(&calls); got != 6 {
		t.Errorf("Expected exactly 6 POST attempts, got %d", got)
	}

	var httpErr *core.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected the transport's own *core.HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", httpErr.StatusCode)
	}
}

func TestQuery_MalformedResponseNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("definitely not json"))
	}))
	defer server.Close()

	client, _ := NewClient("test_token", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))

	_, err := client.Query("{ viewer }", nil)
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if !errors.Is(err, errors.ErrHTTPResponse) {
		t.Errorf("Expected ErrHTTPResponse, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Malformed body must not be retried, got %d attempts", got)
	}
}

func TestNewClientFromSettings(t *testing.T) {
	settings := &config.Settings{
		APIToken: "settings-token",
		Retry: config.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    0.5,
			BackoffMultiplier: 2,
			MaxBackoff:        8,
		},
	}

	client, err := NewClientFromSettings(settings)
	if err != nil {
		t.Fatalf("NewClientFromSettings failed: %v", err)
	}
	if client.APIToken() != "settings-token" {
		t.Errorf("Expected token from settings, got '%s'", client.APIToken())
	}
	if client.retryCfg.MaxAttempts != 3 {
		t.Errorf("Expected retry policy from settings, got %+v", client.retryCfg)
	}
	if client.timeout.Seconds() != config.DefaultHTTPTimeout {
		t.Errorf("Expected default timeout, got %v", client.timeout)
	}
}

func TestNewClientFromSettings_EmptyToken(t *testing.T) {
	_, err := NewClientFromSettings(&config.Settings{})
	if err == nil {
		t.Fatal("Expected error for settings without a token")
	}
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
