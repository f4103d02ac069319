package query

import (
	"context"

	"github.com/goliatone/go-issuer-agent/core"
)

type TransactionWaiter interface {
	WaitForTransaction(ctx context.Context, transactionID string) (core.TransactionRecord, bool, error)
}

type StatusReader interface {
	Mode() core.BackendMode
	IsReady(ctx context.Context) bool
}

type WaitTransactionQuery struct {
	waiter TransactionWaiter
}

func NewWaitTransactionQuery(waiter TransactionWaiter) *WaitTransactionQuery {
	return &WaitTransactionQuery{waiter: waiter}
}

func (q *WaitTransactionQuery) Query(ctx context.Context, msg WaitTransactionMessage) (TransactionResult, error) {
	if q == nil || q.waiter == nil {
		return TransactionResult{}, queryDependencyError("query: transaction waiter is required")
	}
	if err := msg.Validate(); err != nil {
		return TransactionResult{}, err
	}
	record, acked, err := q.waiter.WaitForTransaction(ctx, msg.TransactionID)
	if err != nil {
		return TransactionResult{}, err
	}
	return TransactionResult{Record: record, Acked: acked}, nil
}

// AgentStatusQuery runs a single readiness probe; it never waits.
type AgentStatusQuery struct {
	reader StatusReader
}

func NewAgentStatusQuery(reader StatusReader) *AgentStatusQuery {
	return &AgentStatusQuery{reader: reader}
}

func (q *AgentStatusQuery) Query(ctx context.Context, _ AgentStatusMessage) (AgentStatus, error) {
	if q == nil || q.reader == nil {
		return AgentStatus{}, queryDependencyError("query: status reader is required")
	}
	mode := q.reader.Mode()
	return AgentStatus{
		Mode:    mode,
		Managed: mode == core.ModeManagedTenant,
		Ready:   q.reader.IsReady(ctx),
	}, nil
}

type GetOnboardingQuery struct {
	reader core.OnboardingReader
}

func NewGetOnboardingQuery(reader core.OnboardingReader) *GetOnboardingQuery {
	return &GetOnboardingQuery{reader: reader}
}

func (q *GetOnboardingQuery) Query(ctx context.Context, msg GetOnboardingMessage) (core.OnboardingRecord, error) {
	if q == nil || q.reader == nil {
		return core.OnboardingRecord{}, queryDependencyError("query: onboarding reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.OnboardingRecord{}, err
	}
	return q.reader.GetOnboarding(ctx, msg.ID)
}

type ListOnboardingsQuery struct {
	reader core.OnboardingReader
}

func NewListOnboardingsQuery(reader core.OnboardingReader) *ListOnboardingsQuery {
	return &ListOnboardingsQuery{reader: reader}
}

func (q *ListOnboardingsQuery) Query(ctx context.Context, msg ListOnboardingsMessage) ([]core.OnboardingRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: onboarding reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.ListOnboardings(ctx, msg.Name)
}
