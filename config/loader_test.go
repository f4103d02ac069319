package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
)

func TestLoader_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	content := []byte(`
agent:
  mode: TRACTION
  admin_api_key: from-file
managed:
  endpoint: https://traction.example
  innkeeper_prefix: /innkeeper
polling:
  interval: 250ms
  attempts: 7
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AGENT_AGENT__ADMIN_API_KEY", "from-env")
	t.Setenv("AGENT_WEBHOOK__URL", "https://app.example/hooks")

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendMode() != core.ModeManagedTenant {
		t.Fatalf("expected managed mode, got %q", cfg.Agent.Mode)
	}
	if cfg.Agent.AdminAPIKey != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Agent.AdminAPIKey)
	}
	if cfg.Managed.InnkeeperPrefix != "/innkeeper" {
		t.Fatalf("unexpected innkeeper prefix %q", cfg.Managed.InnkeeperPrefix)
	}
	if cfg.Polling.Interval != 250*time.Millisecond || cfg.Polling.Attempts != 7 {
		t.Fatalf("unexpected polling %#v", cfg.Polling)
	}
	if cfg.Webhook.URL != "https://app.example/hooks" {
		t.Fatalf("unexpected webhook url %q", cfg.Webhook.URL)
	}
}

func TestLoader_MissingFileIsFine(t *testing.T) {
	t.Setenv("AGENT_AGENT__ADMIN_URL", "http://acapy:8031")
	raw, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	agent, ok := raw["agent"].(map[string]any)
	if !ok || agent["admin_url"] != "http://acapy:8031" {
		t.Fatalf("unexpected raw layer %#v", raw)
	}
	if _, ok := raw["managed"]; ok {
		t.Fatalf("expected unset sections to be omitted")
	}
}

func TestLoader_FeedsClientConfig(t *testing.T) {
	t.Setenv("AGENT_READINESS__INTERVAL", "2s")
	t.Setenv("AGENT_AGENT__MODE", "ACAPY")

	provider := core.NewCfgxConfigProvider(NewLoader(""))
	cfg, err := provider.Load(context.Background(), core.DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Readiness.Interval != 2*time.Second {
		t.Fatalf("expected env interval, got %s", cfg.Readiness.Interval)
	}
	if cfg.Polling.Attempts != core.DefaultPollAttempts {
		t.Fatalf("expected default attempts, got %d", cfg.Polling.Attempts)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("agent: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := NewLoader(path).LoadRaw(context.Background())
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
