package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		with func(context.Context, string) context.Context
		get  func(context.Context) string
	}{
		{"RequestID", WithRequestID, GetRequestID},
		{"User", WithUser, GetUser},
		{"Session", WithSession, GetSession},
		{"Provider", WithProvider, GetProvider},
		{"Model", WithModel, GetModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(ctx); got != "" {
				t.Errorf("empty context returned %q", got)
			}
			if got := tt.get(tt.with(ctx, "v-"+tt.name)); got != "v-"+tt.name {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestContextAttrs_Order(t *testing.T) {
	ctx := WithModel(context.Background(), "m")
	ctx = WithRequestID(ctx, "r")
	ctx = WithUser(ctx, "u")

	attrs := contextAttrs(ctx)
	var keys []string
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	want := []string{"request_id", "user", "model"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys = %v, want %v", keys, want)
		}
	}
}
