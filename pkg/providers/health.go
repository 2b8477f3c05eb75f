package providers

import "time"

// HealthReport is the serializable health view of one adapter.
type HealthReport struct {
	Name                string    `json:"name"`
	Configured          bool      `json:"configured"`
	Healthy             bool      `json:"healthy"`
	NativeStreaming     bool      `json:"native_streaming"`
	DefaultModel        string    `json:"default_model"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalRequests       int64     `json:"total_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
}

// Report builds the health view of p. Unconfigured adapters are never healthy.
func Report(p Provider) HealthReport {
	d := p.Descriptor()
	h := p.GetHealth()
	r := HealthReport{
		Name:                p.GetName(),
		Configured:          p.IsConfigured(),
		Healthy:             h.IsHealthy && p.IsConfigured(),
		NativeStreaming:     d.NativeStreaming,
		DefaultModel:        d.DefaultModel,
		ConsecutiveFailures: h.ConsecutiveFailures,
		TotalRequests:       h.TotalRequests,
		FailedRequests:      h.FailedRequests,
		LastSuccess:         h.LastSuccessfulRequest,
	}
	if h.LastError != nil {
		r.LastError = h.LastError.Error()
	}
	return r
}
