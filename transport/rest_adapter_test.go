package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-quantum-client/core"
)

func TestRESTAdapter_DoSendsMethodHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("calibration_set_id"); got != "latest" {
			t.Fatalf("expected query value, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("expected bearer header, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "linux, go 1.26.0, go-quantum-client 1.2.0" {
			t.Fatalf("unexpected user agent %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if string(body) != `{"shots":10}` {
			t.Fatalf("unexpected request body %q", string(body))
		}
		w.Header().Set("X-Server", "ok")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	result, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "POST",
		URL:    server.URL + "/jobs",
		Query:  map[string]string{"calibration_set_id": "latest"},
		Headers: map[string]string{
			"Authorization": "Bearer token-1",
			"User-Agent":    "linux, go 1.26.0, go-quantum-client 1.2.0",
		},
		Body:    []byte(`{"shots":10}`),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
	if result.StatusCode != http.StatusCreated {
		t.Fatalf("expected created status, got %d", result.StatusCode)
	}
	if string(result.Body) != `{"id":"abc"}` {
		t.Fatalf("unexpected response body: %q", string(result.Body))
	}
	if result.Headers["X-Server"] != "ok" {
		t.Fatalf("expected response header")
	}
}

func TestRESTAdapter_DefaultHeadersAreOverridden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Fixed"); got != "always" {
			t.Fatalf("expected default header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("expected request header to win, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders = map[string]string{
		"X-Fixed": "always",
		"Accept":  "text/plain",
	}

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "GET",
		URL:     server.URL,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
}

func TestNewExecutionServiceAdapter_SeedsAPIDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("expected json accept header, got %q", got)
		}
		if got := r.Header.Get("Expect"); got != "100-Continue" {
			t.Fatalf("expected 100-Continue header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewExecutionServiceAdapter(server.Client())
	if _, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "GET",
		URL:    server.URL + "/quantum-architecture",
	}); err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
}

func TestNewRESTAdapter_DefaultClientTimeout(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	httpClient, ok := adapter.Client.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client implementation")
	}
	if httpClient.Timeout != defaultRESTClientTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultRESTClientTimeout, httpClient.Timeout)
	}
	if adapter.MaxResponseBodyBytes != defaultRESTResponseBodyLimit {
		t.Fatalf("expected default response body limit %d, got %d", defaultRESTResponseBodyLimit, adapter.MaxResponseBodyBytes)
	}
}

func TestRESTAdapter_DoFailsOnResponseBodyOverLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"measurements":[[0,1]]}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 8

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "GET",
		URL:    server.URL,
	})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRESTAdapter_RequestBodyLimitOverridesAdapterLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 1024

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:               "GET",
		URL:                  server.URL,
		MaxResponseBodyBytes: 4,
	})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit of 4 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRESTAdapter_RequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "GET",
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if !strings.Contains(err.Error(), "execute http request") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRESTAdapter_InvalidURL(t *testing.T) {
	adapter := NewRESTAdapter(http.DefaultClient)
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "GET",
		URL:    "://broken",
	})
	if err == nil {
		t.Fatalf("expected an invalid url error")
	}
}
