package core_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/devkit"
)

func TestWaitForTransaction_Acked(t *testing.T) {
	fake := devkit.NewFakeTransport()
	url := agentBase + "/transactions/tx-1"
	fake.On(http.MethodGet, url,
		devkit.JSON(http.StatusOK, map[string]any{"transaction_id": "tx-1", "state": "request_sent"}),
		devkit.Fail(errors.New("timeout")),
		devkit.JSON(http.StatusOK, map[string]any{"transaction_id": "tx-1", "state": "transaction_acked", "_type": "x"}),
	)
	client := newClient(t, managedRuntime(), fake, &devkit.RecordingSleeper{})

	record, ok, err := client.WaitForTransaction(context.Background(), "tx-1")
	if err != nil || !ok {
		t.Fatalf("expected acked transaction, got ok=%v err=%v", ok, err)
	}
	if record.ID != "tx-1" || record.State != core.TransactionStateAcked {
		t.Fatalf("unexpected record %#v", record)
	}
	if record.Raw["_type"] != "x" {
		t.Fatalf("expected raw payload, got %#v", record.Raw)
	}
	if fake.Calls(http.MethodGet, url) != 3 {
		t.Fatalf("expected 3 polls, got %d", fake.Calls(http.MethodGet, url))
	}
	req := fake.Requests()[0]
	if req.Headers[core.HeaderAPIKey] != "api-key" {
		t.Fatalf("expected api key on agent call, got %#v", req.Headers)
	}
}

func TestWaitForTransaction_NeverAcked(t *testing.T) {
	fake := devkit.NewFakeTransport()
	url := "http://acapy:8031/transactions/tx-2"
	fake.On(http.MethodGet, url, devkit.JSON(http.StatusOK, map[string]any{"state": "request_sent"}))
	sleeper := &devkit.RecordingSleeper{}
	runtime := directRuntime()
	runtime.Polling.Interval = 250 * time.Millisecond
	client := newClient(t, runtime, fake, sleeper)

	record, ok, err := client.WaitForTransaction(context.Background(), "tx-2")
	if err != nil {
		t.Fatalf("expected timeout without error, got %v", err)
	}
	if ok || record.ID != "" {
		t.Fatalf("expected ok=false with empty record, got %#v ok=%v", record, ok)
	}
	if polls := fake.Calls(http.MethodGet, url); polls != 20 {
		t.Fatalf("expected exactly 20 polls, got %d", polls)
	}
	delays := sleeper.Delays()
	if len(delays) != 20 {
		t.Fatalf("expected 20 sleeps, got %d", len(delays))
	}
	for _, delay := range delays {
		if delay != 250*time.Millisecond {
			t.Fatalf("expected configured interval, got %s", delay)
		}
	}
}

func TestWaitForTransaction_ContextCanceled(t *testing.T) {
	fake := devkit.NewFakeTransport()
	client := newClient(t, directRuntime(), fake, &devkit.RecordingSleeper{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := client.WaitForTransaction(ctx, "tx-3")
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got ok=%v err=%v", ok, err)
	}
}

func TestAgentGet_NonSuccessIsTransportError(t *testing.T) {
	fake := devkit.NewFakeTransport()
	client := newClient(t, directRuntime(), fake, &devkit.RecordingSleeper{})
	_, err := client.AgentGet(context.Background(), "/connections")
	if !core.IsTransportError(err) {
		t.Fatalf("expected transport error for 404, got %v", err)
	}
}

func TestAgentPost_EncodesJSON(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodPost, "http://acapy:8031/schemas", devkit.JSON(http.StatusOK, map[string]any{"schema_id": "s-1"}))
	client := newClient(t, directRuntime(), fake, &devkit.RecordingSleeper{})

	resp, err := client.AgentPost(context.Background(), "/schemas", map[string]any{"schema_name": "badge"})
	if err != nil {
		t.Fatalf("agent post: %v", err)
	}
	if resp.LookupString("schema_id") != "s-1" {
		t.Fatalf("unexpected response %s", resp.Body)
	}
	req := fake.Requests()[0]
	if string(req.Body) != `{"schema_name":"badge"}` || req.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected request %#v", req)
	}
}
