package tls

import (
	"crypto/tls"
	"testing"
	"time"
)

func TestValidateCertificate(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certPath, keyPath := writeTestPair(t, dir, now.Add(-time.Hour), 24*time.Hour)
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cert    *tls.Certificate
		at      time.Time
		wantErr bool
	}{
		{name: "valid", cert: &pair, at: now},
		{name: "not yet valid", cert: &pair, at: now.Add(-2 * time.Hour), wantErr: true},
		{name: "expired", cert: &pair, at: now.Add(48 * time.Hour), wantErr: true},
		{name: "nil", cert: nil, at: now, wantErr: true},
		{name: "empty chain", cert: &tls.Certificate{}, at: now, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateCertificate(tt.cert, tt.at)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certPath, keyPath := writeTestPair(t, dir, now.Add(-time.Hour), 90*24*time.Hour)
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := ValidateCertificate(&pair, now)
	if err != nil {
		t.Fatal(err)
	}

	days, soon := DaysUntilExpiry(leaf, now)
	if days < 88 || days > 90 {
		t.Errorf("days = %d, want about 89", days)
	}
	if soon {
		t.Error("90 days out should not warn")
	}

	if _, soon := DaysUntilExpiry(leaf, now.Add(70*24*time.Hour)); !soon {
		t.Error("20 days out should warn")
	}
}
