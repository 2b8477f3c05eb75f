package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestHTTPProvider(url string) *HTTPProvider {
	return NewHTTPProvider(ProviderConfig{
		Name:    "test-provider",
		BaseURL: url,
		Timeout: 2 * time.Second,
	})
}

// TestHTTPProvider_NoRetry verifies that a failing request is attempted exactly once.
func TestHTTPProvider_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	_, err := p.DoRequest(context.Background(), http.MethodPost, server.URL, []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if perr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", perr.StatusCode)
	}
	if perr.Message != "overloaded" {
		t.Errorf("expected extracted message, got %q", perr.Message)
	}
}

func TestHTTPProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, "invalid api key"},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "slow down"},
		{"plain body", http.StatusBadRequest, `bad things`, "bad things"},
		{"empty body", http.StatusInternalServerError, ``, "empty error response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := newTestHTTPProvider(server.URL)
			_, err := p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)

			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProviderError, got %v", err)
			}
			if perr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", perr.StatusCode, tt.status)
			}
			if perr.Message != tt.want {
				t.Errorf("message = %q, want %q", perr.Message, tt.want)
			}
		})
	}
}

func TestHTTPProvider_SetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	err := p.DoJSONRequest(context.Background(), http.MethodPost, server.URL, []byte(`{}`), &out,
		map[string]string{"Authorization": "Bearer sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Error("expected decoded body")
	}
}

func TestHTTPProvider_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	var out map[string]any
	err := p.DoJSONRequest(context.Background(), http.MethodPost, server.URL, []byte(`{}`), &out, nil)

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", perr.StatusCode)
	}
}

// TestHTTPProvider_CircuitBreaker verifies that 3 consecutive server failures mark the provider unhealthy
// and that a success restores it.
func TestHTTPProvider_CircuitBreaker(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	}
	if !p.IsHealthy() {
		t.Error("expected provider to be healthy after 2 failures")
	}

	p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if p.IsHealthy() {
		t.Error("expected provider to be unhealthy after 3 failures")
	}

	fail.Store(false)
	resp, err := p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	health := p.GetHealth()
	if !health.IsHealthy || health.ConsecutiveFailures != 0 {
		t.Errorf("expected recovery, got %+v", health)
	}
	if health.TotalRequests != 4 || health.FailedRequests != 3 {
		t.Errorf("unexpected counters: total=%d failed=%d", health.TotalRequests, health.FailedRequests)
	}
}

func TestHTTPProvider_ClientErrorsKeepHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	p := newTestHTTPProvider(server.URL)
	for i := 0; i < 5; i++ {
		p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	}
	if !p.IsHealthy() {
		t.Error("400 responses should not mark the provider unhealthy")
	}
}

func TestHTTPProvider_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := newTestHTTPProvider(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if p.GetHealth().FailedRequests != 0 {
		t.Error("cancellation should not count as a provider failure")
	}
}

func TestHTTPProvider_CheckRequestSize(t *testing.T) {
	p := newTestHTTPProvider("http://unused")
	if err := p.CheckRequestSize(make([]byte, 10), 0); err != nil {
		t.Errorf("no limit: unexpected error %v", err)
	}
	if err := p.CheckRequestSize(make([]byte, 10), 10); err != nil {
		t.Errorf("at limit: unexpected error %v", err)
	}
	var verr *ValidationError
	if err := p.CheckRequestSize(make([]byte, 11), 10); !errors.As(err, &verr) {
		t.Errorf("over limit: expected *ValidationError, got %v", err)
	}
}
