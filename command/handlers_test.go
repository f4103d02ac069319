package command

import (
	"context"
	"errors"
	"net/http"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-issuer-agent/core"
)

type stubOnboarder struct {
	fn func(ctx context.Context, name string) (core.IssuerTenant, bool, error)
}

func (s stubOnboarder) CreateIssuerTenant(ctx context.Context, name string) (core.IssuerTenant, bool, error) {
	return s.fn(ctx, name)
}

func TestOnboardIssuerCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	cmd := NewOnboardIssuerCommand(stubOnboarder{
		fn: func(_ context.Context, name string) (core.IssuerTenant, bool, error) {
			called = true
			if name != "Acme" {
				t.Fatalf("expected name Acme, got %q", name)
			}
			return core.IssuerTenant{ID: "c1", WalletID: "w1", WalletKey: "k1", PublicDID: "did:x"}, true, nil
		},
	})
	collector := gocmd.NewResult[OnboardIssuerResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, OnboardIssuerMessage{Name: "Acme"}); err != nil {
		t.Fatalf("execute onboard: %v", err)
	}
	if !called {
		t.Fatalf("expected onboarder invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if !result.Completed || result.Tenant.PublicDID != "did:x" || result.Tenant.ID != "c1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestOnboardIssuerCommand_TimeoutStoresIncompleteResult(t *testing.T) {
	cmd := NewOnboardIssuerCommand(stubOnboarder{
		fn: func(context.Context, string) (core.IssuerTenant, bool, error) {
			return core.IssuerTenant{}, false, nil
		},
	})
	collector := gocmd.NewResult[OnboardIssuerResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, OnboardIssuerMessage{Name: "Acme"}); err != nil {
		t.Fatalf("execute onboard: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.Completed {
		t.Fatalf("expected incomplete result")
	}
}

func TestOnboardIssuerCommand_PropagatesOnboardingError(t *testing.T) {
	expected := core.TransportError("POST", "http://tenant/v0/admin/issuer", http.StatusInternalServerError, nil)
	cmd := NewOnboardIssuerCommand(stubOnboarder{
		fn: func(context.Context, string) (core.IssuerTenant, bool, error) {
			return core.IssuerTenant{}, false, expected
		},
	})
	err := cmd.Execute(context.Background(), OnboardIssuerMessage{Name: "Acme"})
	if !errors.Is(err, expected) {
		t.Fatalf("expected onboarding error, got %v", err)
	}
}

func TestOnboardIssuerCommand_WithoutCollectorDoesNotPanic(t *testing.T) {
	cmd := NewOnboardIssuerCommand(stubOnboarder{
		fn: func(context.Context, string) (core.IssuerTenant, bool, error) {
			return core.IssuerTenant{ID: "c1"}, true, nil
		},
	})
	if err := cmd.Execute(context.Background(), OnboardIssuerMessage{Name: "Acme"}); err != nil {
		t.Fatalf("execute onboard: %v", err)
	}
}

func TestOnboardIssuerMessage_ValidateReturnsRichError(t *testing.T) {
	err := (OnboardIssuerMessage{Name: "  "}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.AgentErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.AgentErrorBadInput, rich.TextCode)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 || validation[0].Field != "name" {
		t.Fatalf("expected name validation field, got %#v", validation)
	}
}

func TestOnboardIssuerCommand_NilOnboarderReturnsRichError(t *testing.T) {
	var cmd *OnboardIssuerCommand
	err := cmd.Execute(context.Background(), OnboardIssuerMessage{Name: "Acme"})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d code, got %d", http.StatusInternalServerError, rich.Code)
	}
}

func TestOnboardIssuerMessage_Type(t *testing.T) {
	if (OnboardIssuerMessage{}).Type() != TypeOnboardIssuer {
		t.Fatalf("unexpected message type")
	}
}
