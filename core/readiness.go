package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/atomic"
)

// ReadinessProber polls the backend's readiness endpoint. Probe failures are
// never surfaced; the most recent one is kept for diagnostics.
type ReadinessProber struct {
	backend   BackendStrategy
	transport Transport
	sleeper   Sleeper
	interval  time.Duration
	timeout   time.Duration
	logger    Logger

	lastErr *atomic.Error
}

func NewReadinessProber(
	backend BackendStrategy,
	transport Transport,
	sleeper Sleeper,
	interval time.Duration,
	timeout time.Duration,
	logger Logger,
) *ReadinessProber {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return &ReadinessProber{
		backend:   backend,
		transport: transport,
		sleeper:   sleeper,
		interval:  interval,
		timeout:   timeout,
		logger:    glog.Ensure(logger),
		lastErr:   atomic.NewError(nil),
	}
}

// IsReady performs a single probe.
func (p *ReadinessProber) IsReady(ctx context.Context) bool {
	probe := p.backend.ReadinessProbe()
	p.logger.Debug("GET " + probe.URL)
	resp, err := p.transport.Do(ctx, TransportRequest{
		Method:  http.MethodGet,
		URL:     probe.URL,
		Headers: cloneHeaders(probe.Headers),
		Timeout: p.timeout,
	})
	if err != nil {
		p.lastErr.Store(err)
		return false
	}
	if !isSuccessStatus(resp.StatusCode) {
		p.lastErr.Store(TransportError(http.MethodGet, probe.URL, resp.StatusCode, nil))
		return false
	}
	return true
}

// WaitUntilReady blocks until a probe succeeds. It has no attempt budget;
// callers bound it through ctx.
func (p *ReadinessProber) WaitUntilReady(ctx context.Context) error {
	outcome, err := Poll(ctx, p.sleeper, PollPolicy{Interval: p.interval}, func(ctx context.Context, _ int) (bool, error) {
		return p.IsReady(ctx), nil
	})
	if err != nil {
		p.logger.Warn("backend readiness wait aborted",
			"attempts", outcome.Attempts,
			"last_error", errorString(p.lastError()),
		)
		return err
	}
	p.logger.Info("backend ready", "mode", string(p.backend.Mode()), "attempts", outcome.Attempts)
	return nil
}

func (p *ReadinessProber) lastError() error {
	return p.lastErr.Load()
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

func cloneHeaders(headers map[string]string) map[string]string {
	copied := make(map[string]string, len(headers))
	for key, value := range headers {
		copied[key] = value
	}
	return copied
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
