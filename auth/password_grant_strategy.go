package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
)

const passwordGrantKind = "password_grant"

// PasswordGrantStrategyConfig carries the optional form fields sent alongside
// the username and password. Empty fields are still sent, as empty values.
type PasswordGrantStrategyConfig struct {
	GrantType    string
	Scope        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PasswordGrantStrategy issues bearer tokens with a form encoded password
// grant and reads the access_token field of the JSON reply.
type PasswordGrantStrategy struct {
	config PasswordGrantStrategyConfig
}

func NewPasswordGrantStrategy(cfgs ...PasswordGrantStrategyConfig) *PasswordGrantStrategy {
	cfg := PasswordGrantStrategyConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	return &PasswordGrantStrategy{
		config: PasswordGrantStrategyConfig{
			GrantType:    strings.TrimSpace(cfg.GrantType),
			Scope:        strings.TrimSpace(cfg.Scope),
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			Timeout:      cfg.Timeout,
		},
	}
}

func (*PasswordGrantStrategy) Type() string {
	return passwordGrantKind
}

func (s *PasswordGrantStrategy) IssueToken(
	ctx context.Context,
	transport core.Transport,
	req core.TokenRequest,
) (string, error) {
	if transport == nil {
		return "", core.AuthenticationError(req.Role, fmt.Errorf("auth: transport is required"))
	}
	resp, err := transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    req.TokenURL,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"accept":       "application/json",
		},
		Body:    []byte(s.encodeForm(req.Username, req.Password)),
		Timeout: s.config.Timeout,
		Metadata: map[string]any{
			"auth_kind": passwordGrantKind,
			"role":      string(req.Role),
		},
	})
	if err != nil {
		return "", core.AuthenticationError(req.Role, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", core.AuthenticationError(
			req.Role,
			core.TransportError(http.MethodPost, req.TokenURL, resp.StatusCode, nil),
		)
	}

	payload := map[string]any{}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return "", core.AuthenticationError(req.Role, fmt.Errorf("auth: decode token response: %w", err))
		}
	}
	token := readString(payload, "access_token")
	if token == "" {
		return "", core.AuthenticationError(req.Role, fmt.Errorf("auth: token response missing access_token"))
	}
	return token, nil
}

// encodeForm keeps the field order of the token endpoint's form contract.
func (s *PasswordGrantStrategy) encodeForm(username, password string) string {
	fields := [][2]string{
		{"grant_type", s.config.GrantType},
		{"username", username},
		{"password", password},
		{"scope", s.config.Scope},
		{"client_id", s.config.ClientID},
		{"client_secret", s.config.ClientSecret},
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field[0]+"="+url.QueryEscape(field[1]))
	}
	return strings.Join(parts, "&")
}
