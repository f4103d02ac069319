package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-issuer-agent/core"
)

var (
	_ gocmd.Querier[WaitTransactionMessage, TransactionResult]       = (*WaitTransactionQuery)(nil)
	_ gocmd.Querier[AgentStatusMessage, AgentStatus]                 = (*AgentStatusQuery)(nil)
	_ gocmd.Querier[GetOnboardingMessage, core.OnboardingRecord]     = (*GetOnboardingQuery)(nil)
	_ gocmd.Querier[ListOnboardingsMessage, []core.OnboardingRecord] = (*ListOnboardingsQuery)(nil)
)
