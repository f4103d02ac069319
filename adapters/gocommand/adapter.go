package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	agentcmd "github.com/goliatone/go-issuer-agent/command"
	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/query"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) register(handler any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(handler)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so they can be enqueued by type.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// Handlers lists the agent operations exposed on the bus. Nil members are
// skipped when mounting.
type Handlers struct {
	Onboarder agentcmd.IssuerOnboarder
	Waiter    query.TransactionWaiter
	Status    query.StatusReader
	Ledger    core.OnboardingReader
}

// Bindings holds the dispatcher subscriptions created by Mount.
type Bindings struct {
	subscriptions []commanddispatcher.Subscription
}

func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.subscriptions)
}

func (b *Bindings) Unsubscribe() {
	if b == nil {
		return
	}
	for _, sub := range b.subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// Mount registers and subscribes every configured handler. On failure the
// subscriptions made so far are released.
func (a *RegistryAdapter) Mount(h Handlers, runnerOpts ...runner.Option) (*Bindings, error) {
	if a == nil || a.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	bindings := &Bindings{}
	add := func(sub commanddispatcher.Subscription, handler any) error {
		if err := a.register(handler); err != nil {
			if sub != nil {
				sub.Unsubscribe()
			}
			return err
		}
		bindings.subscriptions = append(bindings.subscriptions, sub)
		return nil
	}

	if h.Onboarder != nil {
		cmd := agentcmd.NewOnboardIssuerCommand(h.Onboarder)
		if err := add(commanddispatcher.SubscribeCommand[agentcmd.OnboardIssuerMessage](cmd, runnerOpts...), cmd); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	if h.Waiter != nil {
		qry := query.NewWaitTransactionQuery(h.Waiter)
		if err := add(commanddispatcher.SubscribeQuery[query.WaitTransactionMessage, query.TransactionResult](qry, runnerOpts...), qry); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	if h.Status != nil {
		qry := query.NewAgentStatusQuery(h.Status)
		if err := add(commanddispatcher.SubscribeQuery[query.AgentStatusMessage, query.AgentStatus](qry, runnerOpts...), qry); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	if h.Ledger != nil {
		get := query.NewGetOnboardingQuery(h.Ledger)
		if err := add(commanddispatcher.SubscribeQuery[query.GetOnboardingMessage, core.OnboardingRecord](get, runnerOpts...), get); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
		list := query.NewListOnboardingsQuery(h.Ledger)
		if err := add(commanddispatcher.SubscribeQuery[query.ListOnboardingsMessage, []core.OnboardingRecord](list, runnerOpts...), list); err != nil {
			bindings.Unsubscribe()
			return nil, err
		}
	}
	return bindings, nil
}

// OnboardIssuer dispatches the onboarding command and returns the stored
// result.
func OnboardIssuer(ctx context.Context, name string) (agentcmd.OnboardIssuerResult, error) {
	msg := agentcmd.OnboardIssuerMessage{Name: name}
	if err := ValidateMessageContract(msg); err != nil {
		return agentcmd.OnboardIssuerResult{}, err
	}
	collector := gocmd.NewResult[agentcmd.OnboardIssuerResult]()
	if err := commanddispatcher.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return agentcmd.OnboardIssuerResult{}, err
	}
	result, _ := collector.Load()
	return result, nil
}

func WaitTransaction(ctx context.Context, transactionID string) (query.TransactionResult, error) {
	return commanddispatcher.Query[query.WaitTransactionMessage, query.TransactionResult](
		ctx,
		query.WaitTransactionMessage{TransactionID: transactionID},
	)
}

func AgentStatus(ctx context.Context) (query.AgentStatus, error) {
	return commanddispatcher.Query[query.AgentStatusMessage, query.AgentStatus](ctx, query.AgentStatusMessage{})
}

func GetOnboarding(ctx context.Context, id string) (core.OnboardingRecord, error) {
	return commanddispatcher.Query[query.GetOnboardingMessage, core.OnboardingRecord](
		ctx,
		query.GetOnboardingMessage{ID: id},
	)
}
