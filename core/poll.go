package core

import (
	"context"
	"time"
)

// PollPolicy bounds a poll loop. MaxAttempts <= 0 polls until ctx is done.
// DelayFirst sleeps before every attempt, including the first.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	DelayFirst  bool
}

type PollOutcome struct {
	Attempts int
	Done     bool
	LastErr  error
}

type PollFunc func(ctx context.Context, attempt int) (bool, error)

// Poll runs fn until it reports done, the attempt budget is spent or ctx is
// done. Errors from fn count as a failed attempt and are kept in LastErr; the
// returned error is only ever the context error.
func Poll(ctx context.Context, sleeper Sleeper, policy PollPolicy, fn PollFunc) (PollOutcome, error) {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	outcome := PollOutcome{}
	for attempt := 1; policy.MaxAttempts <= 0 || attempt <= policy.MaxAttempts; attempt++ {
		if policy.DelayFirst || attempt > 1 {
			if err := sleeper.Sleep(ctx, policy.Interval); err != nil {
				return outcome, err
			}
		}
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.Attempts = attempt
		done, err := fn(ctx, attempt)
		if err != nil {
			outcome.LastErr = err
			continue
		}
		if done {
			outcome.Done = true
			return outcome, nil
		}
	}
	return outcome, nil
}
