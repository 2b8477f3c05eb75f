package server

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/parley/pkg/config"
	parleytls "mercator-hq/parley/pkg/security/tls"
	"mercator-hq/parley/pkg/telemetry/logging"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

// startServer runs srv in the background and waits until it is listening.
func startServer(t *testing.T, ctx context.Context, srv *Server) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartAndStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	srv := NewServer(testServerConfig(), handler, logging.Discard())

	done := startServer(t, context.Background(), srv)
	if !srv.IsRunning() {
		t.Error("expected server to report running")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("expected pong, got %q", body)
	}

	srv.Stop()
	srv.Stop()
	waitStopped(t, done)

	if srv.IsRunning() {
		t.Error("expected server to report stopped")
	}
}

func TestServer_ContextCancel(t *testing.T) {
	srv := NewServer(testServerConfig(), http.NotFoundHandler(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := startServer(t, ctx, srv)
	cancel()
	waitStopped(t, done)
}

func TestServer_StartTwice(t *testing.T) {
	srv := NewServer(testServerConfig(), http.NotFoundHandler(), logging.Discard())
	done := startServer(t, context.Background(), srv)
	defer func() {
		srv.Stop()
		waitStopped(t, done)
	}()

	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected error starting a running server")
	}
}

func TestServer_ListenError(t *testing.T) {
	cfg := testServerConfig()
	cfg.ListenAddress = "invalid-address"
	srv := NewServer(cfg, http.NotFoundHandler(), logging.Discard())

	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
	if srv.IsRunning() {
		t.Error("server should not be running after a listen error")
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer(testServerConfig(), http.NotFoundHandler(), nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestServer_TLS(t *testing.T) {
	certPEM, keyPEM, err := parleytls.GenerateSelfSigned(parleytls.SelfSignedOptions{
		Hosts:        []string{"127.0.0.1"},
		Organization: "Parley Test",
		ValidFor:     time.Hour,
		NotBefore:    time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	certFile, keyFile, err := parleytls.WriteKeyPair(t.TempDir(), certPEM, keyPEM)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testServerConfig()
	cfg.TLS = config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.2"}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "secure")
	})
	srv := NewServer(cfg, handler, logging.Discard())
	done := startServer(t, context.Background(), srv)
	defer func() {
		srv.Stop()
		waitStopped(t, done)
	}()

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	resp, err := client.Get("https://" + srv.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "secure" {
		t.Errorf("expected secure, got %q", body)
	}
	if resp.TLS == nil {
		t.Error("expected a TLS connection state")
	}
}

func TestServer_TLSMissingCertificate(t *testing.T) {
	dir := t.TempDir()
	cfg := testServerConfig()
	cfg.TLS = config.TLSConfig{
		Enabled:  true,
		CertFile: filepath.Join(dir, "cert.pem"),
		KeyFile:  filepath.Join(dir, "key.pem"),
	}
	srv := NewServer(cfg, http.NotFoundHandler(), logging.Discard())

	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("expected certificate load error")
	}
	if srv.IsRunning() {
		t.Error("server should not be running")
	}
}
