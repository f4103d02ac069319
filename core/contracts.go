package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type TransportRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
	Timeout  time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// Transport performs one HTTP exchange. Network failures are returned as
// errors; a non-2xx status is a response, not an error.
type Transport interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type TokenRequest struct {
	Role     Role
	TokenURL string
	Username string
	Password string
}

// TokenIssuer exchanges credentials for a bearer token at TokenURL.
type TokenIssuer interface {
	IssueToken(ctx context.Context, transport Transport, req TokenRequest) (string, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// OnboardingRecorder persists onboarding progress. Implementations must not
// store wallet keys.
type OnboardingRecorder interface {
	Start(ctx context.Context, name string, state OnboardingState) (string, error)
	Advance(ctx context.Context, id string, state OnboardingState) error
	Fail(ctx context.Context, id string, state OnboardingState, reason string) error
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper suspends the calling goroutine on a timer and wakes early when
// ctx is done.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
