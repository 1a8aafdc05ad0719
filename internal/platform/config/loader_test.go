package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoaderDefaultsWhenFileMissing(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))

	result, err := loader.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Path != "defaults" {
		t.Errorf("expected defaults origin, got %q", result.Path)
	}
	if result.Config.Web.Port != 8000 {
		t.Errorf("unexpected web port: %d", result.Config.Web.Port)
	}
	if result.Config.Sync.QueueSize != 1024 {
		t.Errorf("unexpected queue size: %d", result.Config.Sync.QueueSize)
	}
	if result.Config.Auth.Session.Type != "memory" {
		t.Errorf("unexpected session store type: %q", result.Config.Auth.Session.Type)
	}
}

func TestLoaderReadsFileAndFillsGaps(t *testing.T) {
	path := writeConfigFile(t, `
web:
  port: 9100
transport:
  websocket:
    port: 9101
sync:
  queue_size: 16
  default_max_history_items: 200
`)

	result, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := result.Config
	if cfg.Web.Port != 9100 || cfg.Transport.WebSocket.Port != 9101 {
		t.Errorf("ports not taken from file: web=%d ws=%d", cfg.Web.Port, cfg.Transport.WebSocket.Port)
	}
	if cfg.Sync.QueueSize != 16 {
		t.Errorf("queue size not taken from file: %d", cfg.Sync.QueueSize)
	}
	if cfg.Sync.DefaultMaxHistoryItems != 200 {
		t.Errorf("retention default not taken from file: %d", cfg.Sync.DefaultMaxHistoryItems)
	}
	// Unset fields fall back to defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("log level default missing: %q", cfg.Log.Level)
	}
	if time.Duration(cfg.Sync.StoreTimeout) != 5*time.Second {
		t.Errorf("store timeout default missing: %v", cfg.Sync.StoreTimeout)
	}
}

func TestLoaderParsesDurationStrings(t *testing.T) {
	path := writeConfigFile(t, `
transport:
  websocket:
    handshake_timeout: 3s
auth:
  token_ttl: 48h
sync:
  store_timeout: 250ms
`)

	result, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := result.Config
	if time.Duration(cfg.Transport.WebSocket.HandshakeTimeout) != 3*time.Second {
		t.Errorf("handshake timeout = %v", cfg.Transport.WebSocket.HandshakeTimeout)
	}
	if time.Duration(cfg.Auth.TokenTTL) != 48*time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if time.Duration(cfg.Sync.StoreTimeout) != 250*time.Millisecond {
		t.Errorf("store timeout = %v", cfg.Sync.StoreTimeout)
	}
	// Session ttl falls back to the token ttl when unset.
	if cfg.Auth.Session.TTL != cfg.Auth.TokenTTL {
		t.Errorf("session ttl = %v, want %v", cfg.Auth.Session.TTL, cfg.Auth.TokenTTL)
	}
}

func TestLoaderRejectsMalformedDuration(t *testing.T) {
	path := writeConfigFile(t, `
sync:
  store_timeout: five seconds
`)

	if _, err := NewLoader().WithDotEnv(false).WithPath(path).Load(); err == nil {
		t.Fatal("expected parse error for malformed duration")
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("CLIPSYNC_AUTH_SECRET", "env-secret")
	t.Setenv("CLIPSYNC_WEB_PORT", "9200")

	result, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Config.Auth.Secret != "env-secret" {
		t.Errorf("auth secret override not applied: %q", result.Config.Auth.Secret)
	}
	if result.Config.Web.Port != 9200 {
		t.Errorf("web port override not applied: %d", result.Config.Web.Port)
	}
}

func TestLoaderRejectsConflictingPorts(t *testing.T) {
	path := writeConfigFile(t, `
web:
  port: 9300
transport:
  websocket:
    port: 9300
`)

	if _, err := NewLoader().WithDotEnv(false).WithPath(path).Load(); err == nil {
		t.Fatal("expected validation error for conflicting ports")
	}
}

func TestLoaderRejectsUnknownSessionStore(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  session:
    type: etcd
`)

	if _, err := NewLoader().WithDotEnv(false).WithPath(path).Load(); err == nil {
		t.Fatal("expected validation error for unknown session store")
	}
}
