package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It owns the pooled HTTP client, status mapping and passive health tracking.
// Requests are attempted exactly once.
//
// Concrete adapters embed this struct and implement the remaining Provider
// methods.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the provider's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
//
// Timeout bounds the wait for response headers only, so long-running streams
// are never cut off by the client.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ResponseHeaderTimeout: config.Timeout,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport},
		health: ProviderHealth{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// Config returns the provider's configuration.
func (p *HTTPProvider) Config() ProviderConfig {
	return p.config
}

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// updateHealth records the outcome of one request.
func (p *HTTPProvider) updateHealth(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()
	p.health.TotalRequests++

	if success {
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = time.Now()
		return
	}

	p.health.FailedRequests++
	p.health.ConsecutiveFailures++
	p.health.LastError = err

	// Mark unhealthy after 3 consecutive failures
	if p.health.ConsecutiveFailures >= 3 && p.health.IsHealthy {
		p.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// DoRequest performs a single HTTP request. Non-2xx responses are drained,
// closed and returned as *ProviderError; the caller owns the body otherwise.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &ProviderError{
			Provider: p.config.Name,
			Message:  "failed to create request",
			Cause:    err,
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.DebugContext(ctx, "sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
		"body_bytes", len(body),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller went away; not a provider fault.
			return nil, &ProviderError{
				Provider: p.config.Name,
				Message:  "request cancelled",
				Cause:    ctx.Err(),
			}
		}
		perr := &ProviderError{
			Provider: p.config.Name,
			Message:  "transport failure",
			Cause:    err,
		}
		p.updateHealth(false, perr)
		return nil, perr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.updateHealth(true, nil)
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*KiB))
	resp.Body.Close()

	perr := &ProviderError{
		Provider:   p.config.Name,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(errorBody),
	}
	// Client-side mistakes say nothing about provider health.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		p.updateHealth(false, perr)
	}

	slog.WarnContext(ctx, "provider returned error status",
		"provider", p.config.Name,
		"status", resp.StatusCode,
	)
	return nil, perr
}

// DoJSONRequest performs a JSON request and decodes the response into respBody.
// A response that cannot be decoded is a *ProviderError with status 502.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, body []byte, respBody interface{}, headers map[string]string) error {
	resp, err := p.DoRequest(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{
			Provider:   p.config.Name,
			StatusCode: http.StatusBadGateway,
			Message:    "failed to read response",
			Cause:      err,
		}
	}

	if err := json.Unmarshal(responseBytes, respBody); err != nil {
		return &ProviderError{
			Provider:   p.config.Name,
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("malformed response (%d bytes)", len(responseBytes)),
			Cause:      err,
		}
	}
	return nil
}

// MalformedResponse builds the error adapters return for a response that
// decoded but carried no usable content.
func (p *HTTPProvider) MalformedResponse(reason string) *ProviderError {
	return &ProviderError{
		Provider:   p.config.Name,
		StatusCode: http.StatusBadGateway,
		Message:    reason,
	}
}

// CheckRequestSize enforces the descriptor's request ceiling.
func (p *HTTPProvider) CheckRequestSize(body []byte, limit int64) error {
	if limit > 0 && int64(len(body)) > limit {
		return &ValidationError{
			Field:   "request",
			Message: fmt.Sprintf("encoded request is %d bytes, limit for %s is %d", len(body), p.config.Name, limit),
		}
	}
	return nil
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}
