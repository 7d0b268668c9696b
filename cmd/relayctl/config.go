package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/relayctl/internal/hub"
	"github.com/danmuck/relayctl/internal/proposal"
)

type fileConfig struct {
	ListenAddr      string   `toml:"listen_addr"`
	RegistryTTL     string   `toml:"registry_ttl"`
	ProposalTTL     string   `toml:"proposal_ttl"`
	ReapInterval    string   `toml:"reap_interval"`
	CounterPolicy   string   `toml:"counter_policy"`
	CloseReplaced   bool     `toml:"close_replaced"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	MaxMessageBytes int64    `toml:"max_message_bytes"`
}

func loadServiceConfig(path string) (hub.ServiceConfig, error) {
	cfg := hub.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return hub.ServiceConfig{}, fmt.Errorf("load relay config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.ListenAddr = addr
		}
	}

	if meta.IsDefined("registry_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RegistryTTL))
		if err != nil {
			return hub.ServiceConfig{}, fmt.Errorf("parse registry_ttl: %w", err)
		}
		cfg.RegistryTTL = d
	}

	if meta.IsDefined("proposal_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ProposalTTL))
		if err != nil {
			return hub.ServiceConfig{}, fmt.Errorf("parse proposal_ttl: %w", err)
		}
		cfg.ProposalTTL = d
	}

	if meta.IsDefined("reap_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReapInterval))
		if err != nil {
			return hub.ServiceConfig{}, fmt.Errorf("parse reap_interval: %w", err)
		}
		cfg.ReapInterval = d
	}

	if meta.IsDefined("counter_policy") {
		policy := proposal.CounterPolicy(strings.TrimSpace(raw.CounterPolicy))
		if !policy.Valid() {
			return hub.ServiceConfig{}, fmt.Errorf("invalid counter_policy: %q", raw.CounterPolicy)
		}
		cfg.CounterPolicy = policy
	}

	if meta.IsDefined("close_replaced") {
		cfg.CloseReplaced = raw.CloseReplaced
	}

	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}

	if meta.IsDefined("max_message_bytes") {
		cfg.MaxMessageBytes = raw.MaxMessageBytes
	}

	return cfg, nil
}

// applyEnvOverrides honors the platform-injected PORT variable.
func applyEnvOverrides(cfg *hub.ServiceConfig) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.ListenAddr = ":" + port
	}
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
