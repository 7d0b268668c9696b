package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/relayctl/internal/hub"
	"github.com/danmuck/relayctl/internal/proposal"
)

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	content := `
listen_addr = "127.0.0.1:10443"
registry_ttl = "24h"
proposal_ttl = "30m"
reap_interval = "1m"
counter_policy = "rearm"
close_replaced = true
allowed_origins = ["https://app.example.com", " "]
	`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:10443" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.RegistryTTL != 24*time.Hour {
		t.Fatalf("unexpected registry ttl: %v", cfg.RegistryTTL)
	}
	if cfg.ProposalTTL != 30*time.Minute {
		t.Fatalf("unexpected proposal ttl: %v", cfg.ProposalTTL)
	}
	if cfg.ReapInterval != time.Minute {
		t.Fatalf("unexpected reap interval: %v", cfg.ReapInterval)
	}
	if cfg.CounterPolicy != proposal.CounterRearm {
		t.Fatalf("unexpected counter policy: %q", cfg.CounterPolicy)
	}
	if !cfg.CloseReplaced {
		t.Fatalf("expected close_replaced enabled")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	// Untouched fields keep defaults.
	if cfg.MaxMessageBytes != 64*1024 {
		t.Fatalf("unexpected max message bytes: %d", cfg.MaxMessageBytes)
	}
}

func TestLoadServiceConfigDisablesRegistryTTL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`registry_ttl = "0s"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RegistryTTL != 0 {
		t.Fatalf("expected TTL disabled, got %v", cfg.RegistryTTL)
	}
}

func TestLoadServiceConfigRejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`counter_policy = "sometimes"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected error for invalid counter_policy")
	}
}

func TestApplyEnvOverridesPort(t *testing.T) {
	t.Setenv("PORT", "9100")

	cfg := hub.DefaultServiceConfig()
	applyEnvOverrides(&cfg)
	if cfg.ListenAddr != ":9100" {
		t.Fatalf("PORT override not applied: %q", cfg.ListenAddr)
	}
}
