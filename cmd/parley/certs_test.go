package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	parleytls "mercator-hq/parley/pkg/security/tls"
)

func TestGenerateAndCheckCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	var out bytes.Buffer

	opts := parleytls.SelfSignedOptions{
		Hosts:        []string{"localhost", "127.0.0.1"},
		Organization: "Parley Test",
		ValidFor:     90 * 24 * time.Hour,
		NotBefore:    time.Now().Add(-time.Minute),
	}
	if err := generateCertificate(opts, dir, &out); err != nil {
		t.Fatalf("generateCertificate: %v", err)
	}
	if !strings.Contains(out.String(), filepath.Join(dir, "cert.pem")) {
		t.Errorf("output should name the certificate path:\n%s", out.String())
	}

	out.Reset()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := checkCertificate(certFile, keyFile, time.Now(), &out); err != nil {
		t.Fatalf("checkCertificate: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Subject: localhost", "localhost, 127.0.0.1", "more days"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	if err := checkCertificate(certFile, keyFile, time.Now().Add(70*24*time.Hour), &out); err != nil {
		t.Fatalf("checkCertificate near expiry: %v", err)
	}
	if !strings.Contains(out.String(), "Expires in") {
		t.Errorf("expected expiry warning:\n%s", out.String())
	}

	if err := checkCertificate(certFile, keyFile, time.Now().Add(100*24*time.Hour), &out); err == nil {
		t.Error("expected error for an expired certificate")
	}
}

func TestCheckCertificate_Missing(t *testing.T) {
	dir := t.TempDir()
	err := checkCertificate(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"), time.Now(), &bytes.Buffer{})
	if err == nil {
		t.Error("expected error for missing files")
	}
}

func TestGenerateCertificate_BadKeySize(t *testing.T) {
	opts := parleytls.SelfSignedOptions{Hosts: []string{"localhost"}, KeySize: 512}
	if err := generateCertificate(opts, t.TempDir(), &bytes.Buffer{}); err == nil {
		t.Error("expected key size error")
	}
}
