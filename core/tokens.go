package core

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/atomic"
)

// TokenCache holds at most one innkeeper token and one tenant token. A cached
// token is reused without re-validation until the process exits.
//
// No lock is held across a fetch: concurrent first callers may each fetch,
// and the last successful write wins.
type TokenCache struct {
	backend           BackendStrategy
	transport         Transport
	issuer            TokenIssuer
	innkeeperUser     string
	innkeeperPassword string
	logger            Logger

	innkeeper *atomic.String
	tenant    *atomic.String
}

func NewTokenCache(
	backend BackendStrategy,
	transport Transport,
	issuer TokenIssuer,
	innkeeperUser string,
	innkeeperPassword string,
	logger Logger,
) *TokenCache {
	return &TokenCache{
		backend:           backend,
		transport:         transport,
		issuer:            issuer,
		innkeeperUser:     innkeeperUser,
		innkeeperPassword: innkeeperPassword,
		logger:            glog.Ensure(logger),
		innkeeper:         atomic.NewString(""),
		tenant:            atomic.NewString(""),
	}
}

func (c *TokenCache) InnkeeperToken() string {
	return c.innkeeper.Load()
}

func (c *TokenCache) TenantToken() string {
	return c.tenant.Load()
}

func (c *TokenCache) Snapshot() BearerTokens {
	return BearerTokens{
		Innkeeper: c.innkeeper.Load(),
		Tenant:    c.tenant.Load(),
	}
}

func (c *TokenCache) EnsureInnkeeperToken(ctx context.Context) error {
	if c.innkeeper.Load() != "" {
		return nil
	}
	return c.fetch(ctx, RoleInnkeeper, c.innkeeperUser, c.innkeeperPassword, c.innkeeper)
}

// EnsureTenantToken authenticates with the wallet id and key returned by
// check-in. The slot is shared by every tenant in the process.
func (c *TokenCache) EnsureTenantToken(ctx context.Context, walletID, walletKey string) error {
	if c.tenant.Load() != "" {
		return nil
	}
	return c.fetch(ctx, RoleTenant, walletID, walletKey, c.tenant)
}

func (c *TokenCache) fetch(ctx context.Context, role Role, username, password string, slot *atomic.String) error {
	if c.issuer == nil || c.transport == nil {
		return AuthenticationError(role, ConfigurationError("token issuer and transport are required", nil))
	}
	tokenURL := c.backend.BaseURL(role) + "/token"
	c.logger.Debug("POST "+tokenURL, "role", string(role))

	token, err := c.issuer.IssueToken(ctx, c.transport, TokenRequest{
		Role:     role,
		TokenURL: tokenURL,
		Username: username,
		Password: password,
	})
	if err != nil {
		if IsAuthenticationError(err) {
			return err
		}
		return AuthenticationError(role, err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return AuthenticationError(role, nil)
	}
	slot.Store(token)
	return nil
}
