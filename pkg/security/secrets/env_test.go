package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestEnvProvider_GetSecret(t *testing.T) {
	t.Setenv("PARLEY_SECRET_OPENAI_API_KEY", "sk-from-env")
	t.Setenv("PARLEY_SECRET_EMPTY", "")

	p := NewEnvProvider("PARLEY_SECRET_")

	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{name: "dashes become underscores", secret: "openai-api-key", want: "sk-from-env"},
		{name: "already upper case", secret: "OPENAI_API_KEY", want: "sk-from-env"},
		{name: "empty variable", secret: "empty", wantErr: true},
		{name: "unset variable", secret: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetSecret(context.Background(), tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvProvider_NoPrefix(t *testing.T) {
	t.Setenv("JWT_SECRET", "signing-secret")

	got, err := NewEnvProvider("").GetSecret(context.Background(), "jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "signing-secret" {
		t.Errorf("got %q", got)
	}
}

func TestEnvProvider_Supports(t *testing.T) {
	p := NewEnvProvider("")
	if p.Provider() != "env" {
		t.Errorf("Provider() = %q", p.Provider())
	}
	if !p.Supports("anything") {
		t.Error("expected any non-empty name to be supported")
	}
	if p.Supports("") {
		t.Error("empty name should not be supported")
	}
}
