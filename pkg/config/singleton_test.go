package config

import (
	"os"
	"sync"
	"testing"
)

func resetGlobal() {
	current.Store(nil)
	initOnce = sync.Once{}
	initErr = nil
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8181"
storage:
  backend: "memory"
`)

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8181" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobal()
	first := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:1111\"\n")
	second := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:2222\"\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	if got := GetConfig().Server.ListenAddress; got != "127.0.0.1:1111" {
		t.Errorf("expected first config to win, got %q", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetGlobal()
	if GetConfig() != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestInitialize_FailureIsSticky(t *testing.T) {
	resetGlobal()
	bad := writeConfig(t, "storage:\n  backend: \"cassandra\"\n")
	good := writeConfig(t, "storage:\n  backend: \"memory\"\n")

	if err := Initialize(bad); err == nil {
		t.Fatal("expected error for an invalid config")
	}
	if err := Initialize(good); err == nil {
		t.Error("later calls should report the first failure")
	}
	if GetConfig() != nil {
		t.Error("no config should be installed after a failed Initialize")
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, `
providers:
  openai:
    api_key: "sk-initial"
`)
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	if err := os.WriteFile(path, []byte("providers:\n  openai:\n    api_key: \"sk-updated\"\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	cfg, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if cfg.Providers["openai"].APIKey != "sk-updated" {
		t.Errorf("returned config not updated")
	}
	if GetConfig() != cfg {
		t.Error("global config not replaced")
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "storage:\n  backend: \"memory\"\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	before := GetConfig()

	if err := os.WriteFile(path, []byte("storage:\n  backend: \"cassandra\"\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	if _, err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != before {
		t.Error("invalid reload must keep the previous config")
	}
}
