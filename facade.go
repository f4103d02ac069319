package agent

import (
	"fmt"

	agentcmd "github.com/goliatone/go-issuer-agent/command"
	"github.com/goliatone/go-issuer-agent/core"
	agentquery "github.com/goliatone/go-issuer-agent/query"
)

type CommandQueryService interface {
	agentcmd.IssuerOnboarder
	agentquery.TransactionWaiter
	agentquery.StatusReader
}

type Commands struct {
	OnboardIssuer *agentcmd.OnboardIssuerCommand
}

type Queries struct {
	WaitTransaction *agentquery.WaitTransactionQuery
	AgentStatus     *agentquery.AgentStatusQuery
	GetOnboarding   *agentquery.GetOnboardingQuery
	ListOnboardings *agentquery.ListOnboardingsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	onboardingReader core.OnboardingReader
}

// WithOnboardingReader backs the onboarding ledger queries. Without it they
// return a dependency error.
func WithOnboardingReader(reader core.OnboardingReader) FacadeOption {
	return func(options *facadeOptions) {
		options.onboardingReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("agent: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		OnboardIssuer: agentcmd.NewOnboardIssuerCommand(service),
	}
	facade.queries = Queries{
		WaitTransaction: agentquery.NewWaitTransactionQuery(service),
		AgentStatus:     agentquery.NewAgentStatusQuery(service),
		GetOnboarding:   agentquery.NewGetOnboardingQuery(cfg.onboardingReader),
		ListOnboardings: agentquery.NewListOnboardingsQuery(cfg.onboardingReader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*core.Client)(nil)
