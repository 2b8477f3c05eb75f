package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSecret(t *testing.T, dir, name, value string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), mode); err != nil {
		t.Fatal(err)
	}
	// WriteFile does not change the mode of an existing file.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func TestFileProvider_GetSecret(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "openai-api-key", "sk-from-file\n", 0o600)
	writeSecret(t, dir, "read-only", "ro", 0o400)
	writeSecret(t, dir, "world-readable", "leaky", 0o644)

	p, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	tests := []struct {
		name     string
		secret   string
		want     string
		wantErr  string
		notFound bool
	}{
		{name: "trims trailing newline", secret: "openai-api-key", want: "sk-from-file"},
		{name: "read-only file", secret: "read-only", want: "ro"},
		{name: "insecure permissions", secret: "world-readable", wantErr: "insecure permissions"},
		{name: "missing file", secret: "missing", notFound: true},
		{name: "path traversal", secret: "../etc/passwd", wantErr: "invalid secret name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetSecret(context.Background(), tt.secret)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestFileProvider_CacheAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "key", "v1", 0o600)

	p, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx := context.Background()
	if got, _ := p.GetSecret(ctx, "key"); got != "v1" {
		t.Fatalf("got %q, want v1", got)
	}

	writeSecret(t, dir, "key", "v2", 0o600)
	if got, _ := p.GetSecret(ctx, "key"); got != "v1" {
		t.Errorf("expected cached v1 before refresh, got %q", got)
	}

	if err := p.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := p.GetSecret(ctx, "key"); got != "v2" {
		t.Errorf("expected v2 after refresh, got %q", got)
	}
}

func TestFileProvider_Watch(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "watched", "v1", 0o600)

	p, err := NewFileProvider(dir, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx := context.Background()
	if got, _ := p.GetSecret(ctx, "watched"); got != "v1" {
		t.Fatalf("got %q, want v1", got)
	}

	writeSecret(t, dir, "watched", "v2", 0o600)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := p.GetSecret(ctx, "watched")
		if err == nil && got == "v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watcher did not drop the cache, last value %q", got)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFileProvider_Supports(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "present", "x", 0o600)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o700); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]bool{
		"present": true,
		"absent":  false,
		"subdir":  false,
		"../x":    false,
	} {
		if got := p.Supports(name); got != want {
			t.Errorf("Supports(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewFileProvider_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	writeSecret(t, dir, "file", "x", 0o600)

	if _, err := NewFileProvider(filepath.Join(dir, "missing"), false, nil); err == nil {
		t.Error("expected error for a missing directory")
	}
	if _, err := NewFileProvider(file, false, nil); err == nil {
		t.Error("expected error for a regular file")
	}
}
