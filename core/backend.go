package core

import "strings"

type Role string

const (
	RoleAgent     Role = "agent"
	RoleInnkeeper Role = "innkeeper"
	RoleTenant    Role = "tenant"
)

const (
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
)

type BearerTokens struct {
	Innkeeper string
	Tenant    string
}

type ReadinessProbe struct {
	URL     string
	Headers map[string]string
}

// BackendStrategy owns every mode-specific decision: base URLs, auth headers
// and the readiness endpoint.
type BackendStrategy interface {
	Mode() BackendMode
	BaseURL(role Role) string
	AuthHeaders(role Role, tokens BearerTokens) map[string]string
	ReadinessProbe() ReadinessProbe
}

func ResolveBackend(cfg Config) BackendStrategy {
	if cfg.BackendMode() == ModeManagedTenant {
		return ManagedTenantBackend{
			Endpoint:        cfg.Managed.Endpoint,
			AgentPrefix:     cfg.Managed.AgentPrefix,
			InnkeeperPrefix: cfg.Managed.InnkeeperPrefix,
			TenantPrefix:    cfg.Managed.TenantPrefix,
			APIKey:          cfg.Agent.AdminAPIKey,
		}
	}
	return DirectAgentBackend{
		AdminURL: cfg.Agent.AdminURL,
		APIKey:   cfg.Agent.AdminAPIKey,
	}
}

type DirectAgentBackend struct {
	AdminURL string
	APIKey   string
}

func (DirectAgentBackend) Mode() BackendMode { return ModeDirectAgent }

// BaseURL is empty for innkeeper and tenant roles: a direct agent has no
// provisioning layer.
func (b DirectAgentBackend) BaseURL(role Role) string {
	if role == RoleAgent {
		return b.AdminURL
	}
	return ""
}

func (b DirectAgentBackend) AuthHeaders(role Role, _ BearerTokens) map[string]string {
	if role == RoleInnkeeper {
		return map[string]string{}
	}
	return map[string]string{HeaderAPIKey: b.APIKey}
}

func (b DirectAgentBackend) ReadinessProbe() ReadinessProbe {
	return ReadinessProbe{
		URL:     b.AdminURL + "/status/ready",
		Headers: map[string]string{HeaderAPIKey: b.APIKey},
	}
}

type ManagedTenantBackend struct {
	Endpoint        string
	AgentPrefix     string
	InnkeeperPrefix string
	TenantPrefix    string
	APIKey          string
}

func (ManagedTenantBackend) Mode() BackendMode { return ModeManagedTenant }

func (b ManagedTenantBackend) BaseURL(role Role) string {
	switch role {
	case RoleInnkeeper:
		return b.Endpoint + b.InnkeeperPrefix
	case RoleTenant:
		return b.Endpoint + b.TenantPrefix
	default:
		return b.Endpoint + b.AgentPrefix
	}
}

// AuthHeaders carries exactly one bearer role. The header is left out while
// the matching token slot is empty.
func (b ManagedTenantBackend) AuthHeaders(role Role, tokens BearerTokens) map[string]string {
	if role == RoleInnkeeper {
		headers := map[string]string{}
		setBearer(headers, tokens.Innkeeper)
		return headers
	}
	headers := map[string]string{HeaderAPIKey: b.APIKey}
	setBearer(headers, tokens.Tenant)
	return headers
}

func (b ManagedTenantBackend) ReadinessProbe() ReadinessProbe {
	return ReadinessProbe{
		URL:     b.Endpoint + "/",
		Headers: map[string]string{},
	}
}

func setBearer(headers map[string]string, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	headers[HeaderAuthorization] = "Bearer " + token
}
