package core

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestReadinessProber_RetriesUntilReady(t *testing.T) {
	transport := &scriptedTransport{
		responses: []TransportResponse{{}, {StatusCode: http.StatusServiceUnavailable}, {StatusCode: http.StatusOK}},
		errs:      []error{errors.New("connection refused")},
	}
	sleeper := &countingSleeper{}
	prober := NewReadinessProber(ResolveBackend(directConfig()), transport, sleeper, 500*time.Millisecond, time.Second, stubLogger{})

	if err := prober.WaitUntilReady(context.Background()); err != nil {
		t.Fatalf("wait until ready: %v", err)
	}
	if transport.count() != 3 {
		t.Fatalf("expected exactly 3 probes, got %d", transport.count())
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeper.delays))
	}
	if !IsTransportError(prober.lastError()) {
		t.Fatalf("expected last 503 kept as diagnostic, got %v", prober.lastError())
	}

	req := transport.requests[0]
	if req.URL != "http://acapy:8031/status/ready" || req.Headers[HeaderAPIKey] != "api-key" {
		t.Fatalf("unexpected probe request %#v", req)
	}
}

func TestReadinessProber_ContextCancelIsOnlyError(t *testing.T) {
	transport := &scriptedTransport{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := &cancelAfterSleeper{cancel: cancel, after: 3}
	prober := NewReadinessProber(ResolveBackend(managedConfig()), transport, sleeper, time.Millisecond, 0, nil)

	err := prober.WaitUntilReady(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if transport.requests[0].URL != "https://traction.example/" {
		t.Fatalf("expected managed probe url, got %q", transport.requests[0].URL)
	}
	if len(transport.requests[0].Headers) != 0 {
		t.Fatalf("expected managed probe without headers, got %#v", transport.requests[0].Headers)
	}
}

func TestReadinessProber_IsReadySingleProbe(t *testing.T) {
	transport := &scriptedTransport{responses: []TransportResponse{{StatusCode: http.StatusNoContent}}}
	prober := NewReadinessProber(ResolveBackend(directConfig()), transport, nil, time.Second, 0, nil)
	if !prober.IsReady(context.Background()) {
		t.Fatalf("expected 204 to count as ready")
	}
	if transport.count() != 1 {
		t.Fatalf("expected one probe, got %d", transport.count())
	}
}

type cancelAfterSleeper struct {
	cancel context.CancelFunc
	after  int
	calls  int
}

func (s *cancelAfterSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	s.calls++
	if s.calls >= s.after {
		s.cancel()
	}
	return ctx.Err()
}
