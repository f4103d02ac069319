package core

import (
	"context"
	"net/url"
	"strings"
)

const TransactionStateAcked = "transaction_acked"

type TransactionRecord struct {
	ID    string         `json:"transaction_id"`
	State string         `json:"state"`
	Raw   map[string]any `json:"-"`
}

// WaitForTransaction polls the agent until the transaction is acked. Pending
// and unreachable polls both spend an attempt; exhausting the budget returns
// ok=false without an error.
func (c *Client) WaitForTransaction(ctx context.Context, transactionID string) (TransactionRecord, bool, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return TransactionRecord{}, false, BadInputError("transaction id is required")
	}

	path := "/transactions/" + url.PathEscape(transactionID)
	record := TransactionRecord{}
	outcome, err := Poll(ctx, c.sleeper, c.pollPolicy(), func(ctx context.Context, _ int) (bool, error) {
		resp, err := c.AgentGet(ctx, path)
		if err != nil {
			return false, err
		}
		raw := map[string]any{}
		if err := resp.Decode(&raw); err != nil {
			return false, err
		}
		state := resp.LookupString("state")
		if state != TransactionStateAcked {
			return false, nil
		}
		record = TransactionRecord{
			ID:    transactionID,
			State: state,
			Raw:   raw,
		}
		return true, nil
	})
	tags := map[string]string{"status": "acked"}
	if err != nil || !outcome.Done {
		tags["status"] = "pending"
	}
	c.metrics.IncCounter(ctx, "agent.transactions.wait.total", 1, tags)
	if err != nil {
		return TransactionRecord{}, false, err
	}
	if !outcome.Done {
		c.logger.Warn("transaction not acked",
			"transaction_id", transactionID,
			"attempts", outcome.Attempts,
			"last_error", errorString(outcome.LastErr),
		)
		return TransactionRecord{}, false, nil
	}
	return record, true, nil
}
