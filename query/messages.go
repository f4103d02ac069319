package query

import (
	"strings"

	"github.com/goliatone/go-issuer-agent/core"
)

const (
	TypeWaitTransaction = "agent.query.transaction.wait"
	TypeAgentStatus     = "agent.query.status"
	TypeGetOnboarding   = "agent.query.onboarding.get"
	TypeListOnboardings = "agent.query.onboarding.list"
)

type WaitTransactionMessage struct {
	TransactionID string
}

func (WaitTransactionMessage) Type() string { return TypeWaitTransaction }

func (m WaitTransactionMessage) Validate() error {
	if strings.TrimSpace(m.TransactionID) == "" {
		return queryValidationError("transaction_id", "transaction id is required")
	}
	return nil
}

type TransactionResult struct {
	Record core.TransactionRecord `json:"record"`
	Acked  bool                   `json:"acked"`
}

type AgentStatusMessage struct{}

func (AgentStatusMessage) Type() string { return TypeAgentStatus }

func (AgentStatusMessage) Validate() error { return nil }

type AgentStatus struct {
	Mode    core.BackendMode `json:"mode"`
	Managed bool             `json:"managed"`
	Ready   bool             `json:"ready"`
}

type GetOnboardingMessage struct {
	ID string
}

func (GetOnboardingMessage) Type() string { return TypeGetOnboarding }

func (m GetOnboardingMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "onboarding id is required")
	}
	return nil
}

type ListOnboardingsMessage struct {
	Name string
}

func (ListOnboardingsMessage) Type() string { return TypeListOnboardings }

func (m ListOnboardingsMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return queryValidationError("name", "tenant name is required")
	}
	return nil
}
