package core

import (
	"fmt"
	"strings"
	"time"
)

type BackendMode string

const (
	ModeDirectAgent   BackendMode = "ACAPY"
	ModeManagedTenant BackendMode = "TRACTION"
)

// ParseBackendMode resolves the managed mode only for an exact (case
// insensitive) match; every other value selects the direct agent.
func ParseBackendMode(value string) BackendMode {
	if strings.EqualFold(strings.TrimSpace(value), string(ModeManagedTenant)) {
		return ModeManagedTenant
	}
	return ModeDirectAgent
}

type AgentConfig struct {
	Mode        string `koanf:"mode" mapstructure:"mode"`
	AdminURL    string `koanf:"admin_url" mapstructure:"admin_url"`
	AdminAPIKey string `koanf:"admin_api_key" mapstructure:"admin_api_key"`
}

type ManagedConfig struct {
	Endpoint          string `koanf:"endpoint" mapstructure:"endpoint"`
	AgentPrefix       string `koanf:"agent_prefix" mapstructure:"agent_prefix"`
	InnkeeperPrefix   string `koanf:"innkeeper_prefix" mapstructure:"innkeeper_prefix"`
	TenantPrefix      string `koanf:"tenant_prefix" mapstructure:"tenant_prefix"`
	InnkeeperUser     string `koanf:"innkeeper_user" mapstructure:"innkeeper_user"`
	InnkeeperPassword string `koanf:"innkeeper_password" mapstructure:"innkeeper_password"`
}

type WebhookConfig struct {
	URL   string `koanf:"url" mapstructure:"url"`
	Route string `koanf:"route" mapstructure:"route"`
	Key   string `koanf:"key" mapstructure:"key"`
}

type PollingConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
	Attempts int           `koanf:"attempts" mapstructure:"attempts"`
}

type ReadinessConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

type TransportConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Agent       AgentConfig     `koanf:"agent" mapstructure:"agent"`
	Managed     ManagedConfig   `koanf:"managed" mapstructure:"managed"`
	Webhook     WebhookConfig   `koanf:"webhook" mapstructure:"webhook"`
	Polling     PollingConfig   `koanf:"polling" mapstructure:"polling"`
	Readiness   ReadinessConfig `koanf:"readiness" mapstructure:"readiness"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Database    DatabaseConfig  `koanf:"database" mapstructure:"database"`
	HTTP        HTTPConfig      `koanf:"http" mapstructure:"http"`
}

const (
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultPollAttempts      = 20
	DefaultReadinessInterval = 500 * time.Millisecond
	DefaultWebhookRoute      = "traction"
	DefaultWebhookKey        = "tbd"
)

func DefaultConfig() Config {
	return Config{
		ServiceName: "issuer-agent",
		Agent:       AgentConfig{Mode: string(ModeDirectAgent)},
		Webhook: WebhookConfig{
			Route: DefaultWebhookRoute,
			Key:   DefaultWebhookKey,
		},
		Polling: PollingConfig{
			Interval: DefaultPollInterval,
			Attempts: DefaultPollAttempts,
		},
		Readiness: ReadinessConfig{Interval: DefaultReadinessInterval},
		Transport: TransportConfig{Timeout: 30 * time.Second},
		Database:  DatabaseConfig{Driver: "sqlite3"},
		HTTP:      HTTPConfig{Addr: ":8080"},
	}
}

// Validate rejects only values that cannot be used at all. Missing URLs and
// credentials resolve to empty strings downstream.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Polling.Interval < 0 {
		return fmt.Errorf("core: polling.interval must not be negative")
	}
	if c.Polling.Attempts < 0 {
		return fmt.Errorf("core: polling.attempts must not be negative")
	}
	if c.Readiness.Interval < 0 {
		return fmt.Errorf("core: readiness.interval must not be negative")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport.timeout must not be negative")
	}
	return nil
}

func (c Config) BackendMode() BackendMode {
	return ParseBackendMode(c.Agent.Mode)
}

// ConfigLayer flattens cfg into the nested map shape used by the options
// stack. Zero values are skipped unless includeZero is set.
func ConfigLayer(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	putSection(layer, "agent", includeZero, map[string]any{
		"mode":          cfg.Agent.Mode,
		"admin_url":     cfg.Agent.AdminURL,
		"admin_api_key": cfg.Agent.AdminAPIKey,
	})
	putSection(layer, "managed", includeZero, map[string]any{
		"endpoint":           cfg.Managed.Endpoint,
		"agent_prefix":       cfg.Managed.AgentPrefix,
		"innkeeper_prefix":   cfg.Managed.InnkeeperPrefix,
		"tenant_prefix":      cfg.Managed.TenantPrefix,
		"innkeeper_user":     cfg.Managed.InnkeeperUser,
		"innkeeper_password": cfg.Managed.InnkeeperPassword,
	})
	putSection(layer, "webhook", includeZero, map[string]any{
		"url":   cfg.Webhook.URL,
		"route": cfg.Webhook.Route,
		"key":   cfg.Webhook.Key,
	})
	putSection(layer, "polling", includeZero, map[string]any{
		"interval": cfg.Polling.Interval,
		"attempts": cfg.Polling.Attempts,
	})
	putSection(layer, "readiness", includeZero, map[string]any{
		"interval": cfg.Readiness.Interval,
	})
	putSection(layer, "transport", includeZero, map[string]any{
		"timeout": cfg.Transport.Timeout,
	})
	putSection(layer, "database", includeZero, map[string]any{
		"driver": cfg.Database.Driver,
		"dsn":    cfg.Database.DSN,
	})
	putSection(layer, "http", includeZero, map[string]any{
		"addr": cfg.HTTP.Addr,
	})
	return layer
}

func putSection(layer map[string]any, key string, includeZero bool, values map[string]any) {
	section := map[string]any{}
	for name, value := range values {
		if includeZero || !isZeroValue(value) {
			section[name] = value
		}
	}
	if includeZero || len(section) > 0 {
		layer[key] = section
	}
}

func isZeroValue(value any) bool {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed) == ""
	case int:
		return typed == 0
	case time.Duration:
		return typed == 0
	case nil:
		return true
	default:
		return false
	}
}
