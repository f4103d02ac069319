package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-issuer-agent/core"
)

type IssuerOnboarder interface {
	CreateIssuerTenant(ctx context.Context, name string) (core.IssuerTenant, bool, error)
}

type OnboardIssuerCommand struct {
	onboarder IssuerOnboarder
}

func NewOnboardIssuerCommand(onboarder IssuerOnboarder) *OnboardIssuerCommand {
	return &OnboardIssuerCommand{onboarder: onboarder}
}

func (c *OnboardIssuerCommand) Execute(ctx context.Context, msg OnboardIssuerMessage) error {
	if c == nil || c.onboarder == nil {
		return commandDependencyError("command: issuer onboarder is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	tenant, completed, err := c.onboarder.CreateIssuerTenant(ctx, msg.Name)
	if err != nil {
		return err
	}
	storeResult(ctx, OnboardIssuerResult{Tenant: tenant, Completed: completed})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
