package command

import (
	"strings"

	"github.com/goliatone/go-issuer-agent/core"
)

const TypeOnboardIssuer = "agent.command.issuer.onboard"

type OnboardIssuerMessage struct {
	Name string
}

func (OnboardIssuerMessage) Type() string { return TypeOnboardIssuer }

func (m OnboardIssuerMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return commandValidationError("name", "tenant name is required")
	}
	return nil
}

// OnboardIssuerResult is stored in the command result collector. Completed is
// false when activation did not finish within the polling budget.
type OnboardIssuerResult struct {
	Tenant    core.IssuerTenant `json:"tenant"`
	Completed bool              `json:"completed"`
}
