package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_DefaultTimeout(t *testing.T) {
	c := New("1.0.0", 0)
	if c.checkTimeout != 5*time.Second {
		t.Errorf("checkTimeout = %v", c.checkTimeout)
	}
}

func TestRegisterCheck(t *testing.T) {
	c := New("", time.Second)
	c.RegisterCheck("storage", func(context.Context) error { return nil })
	c.RegisterCheck("providers", func(context.Context) error { return nil })
	c.RegisterCheck("storage", func(context.Context) error { return errors.New("replaced") })

	names := c.ListChecks()
	if len(names) != 2 || names[0] != "providers" || names[1] != "storage" {
		t.Errorf("ListChecks() = %v", names)
	}
	if got := c.CheckReadiness(context.Background()).Checks["storage"].Message; got != "replaced" {
		t.Errorf("storage check message = %q", got)
	}
}

func TestCheckLiveness(t *testing.T) {
	status := New("1.2.3", time.Second).CheckLiveness(context.Background())
	if status.Status != StatusOK || status.Version != "1.2.3" || status.Uptime == "" {
		t.Errorf("status = %+v", status)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{name: "no checks", want: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"storage":   func(context.Context) error { return nil },
				"providers": func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"storage":   func(context.Context) error { return nil },
				"providers": func(context.Context) error { return errors.New("no provider is configured") },
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("", time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %s, want %s", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("Checks = %v", status.Checks)
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New("", 20*time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != StatusDegraded || status.Checks["slow"].Message != "health check timeout" {
		t.Errorf("status = %+v", status)
	}
}

func TestLivenessHandler(t *testing.T) {
	c := New("1.0.0", time.Second)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		w := httptest.NewRecorder()
		c.LivenessHandler()(w, httptest.NewRequest(method, "/health", nil))

		if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
			t.Errorf("%s: code = %d", method, w.Code)
		}
		if method == http.MethodHead && w.Body.Len() != 0 {
			t.Error("HEAD response has a body")
		}
	}
}

func TestReadinessHandler(t *testing.T) {
	c := New("", time.Second)
	healthy := true
	c.RegisterCheck("providers", func(context.Context) error {
		if !healthy {
			return errors.New("no provider is configured")
		}
		return nil
	})

	w := httptest.NewRecorder()
	c.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}

	healthy = false
	w = httptest.NewRecorder()
	c.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", w.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["providers"].Message != "no provider is configured" {
		t.Errorf("status = %+v", status)
	}
}

func TestReportHandler(t *testing.T) {
	h := ReportHandler(func() any {
		return map[string]int{"configured": 2}
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/health/providers", nil))

	if w.Code != http.StatusOK || w.Body.String() != "{\"configured\":2}\n" {
		t.Errorf("code = %d body = %q", w.Code, w.Body.String())
	}
}
