package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/devkit"
)

func TestPasswordGrantStrategy_IssueToken(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodPost, "https://traction.example/innkeeper/token",
		devkit.JSON(http.StatusOK, map[string]any{"access_token": " abc ", "token_type": "bearer"}))

	token, err := NewPasswordGrantStrategy().IssueToken(context.Background(), fake, core.TokenRequest{
		Role:     core.RoleInnkeeper,
		TokenURL: "https://traction.example/innkeeper/token",
		Username: "innkeeper",
		Password: "p@ss word",
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token != "abc" {
		t.Fatalf("expected trimmed token, got %q", token)
	}

	req := fake.Requests()[0]
	if string(req.Body) != "grant_type=&username=innkeeper&password=p%40ss+word&scope=&client_id=&client_secret=" {
		t.Fatalf("unexpected form %q", req.Body)
	}
	if req.Headers["Content-Type"] != "application/x-www-form-urlencoded" || req.Headers["accept"] != "application/json" {
		t.Fatalf("unexpected headers %#v", req.Headers)
	}
	if req.Metadata["role"] != "innkeeper" {
		t.Fatalf("expected role metadata, got %#v", req.Metadata)
	}
}

func TestPasswordGrantStrategy_ConfiguredFields(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodPost, "/token", devkit.JSON(http.StatusOK, map[string]any{"access_token": "abc"}))
	strategy := NewPasswordGrantStrategy(PasswordGrantStrategyConfig{
		GrantType: "password",
		Scope:     "tenant",
		ClientID:  "app",
	})
	if _, err := strategy.IssueToken(context.Background(), fake, core.TokenRequest{TokenURL: "/token", Username: "u", Password: "p"}); err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if got := string(fake.Requests()[0].Body); got != "grant_type=password&username=u&password=p&scope=tenant&client_id=app&client_secret=" {
		t.Fatalf("unexpected form %q", got)
	}
}

func TestPasswordGrantStrategy_Failures(t *testing.T) {
	cases := map[string]devkit.TransportScript{
		"status":       devkit.Status(http.StatusUnauthorized),
		"network":      devkit.Fail(errors.New("connection refused")),
		"missing":      devkit.JSON(http.StatusOK, map[string]any{"detail": "nope"}),
		"invalid json": {Response: core.TransportResponse{StatusCode: http.StatusOK, Body: []byte("<html>")}},
	}
	for name, script := range cases {
		fake := devkit.NewFakeTransport()
		fake.On(http.MethodPost, "/token", script)
		_, err := NewPasswordGrantStrategy().IssueToken(context.Background(), fake, core.TokenRequest{
			Role:     core.RoleTenant,
			TokenURL: "/token",
		})
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%s: expected go-errors envelope, got %T", name, err)
		}
		if rich.Category != goerrors.CategoryAuth || rich.TextCode != core.AgentErrorAuthentication {
			t.Fatalf("%s: expected authentication error, got %q/%q", name, rich.Category, rich.TextCode)
		}
	}
}

func TestPasswordGrantStrategy_NilTransport(t *testing.T) {
	_, err := NewPasswordGrantStrategy().IssueToken(context.Background(), nil, core.TokenRequest{Role: core.RoleInnkeeper})
	if !core.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}
