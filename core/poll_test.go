package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSleeper struct {
	delays []time.Duration
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestPoll_BoundedBudgetExhausted(t *testing.T) {
	sleeper := &countingSleeper{}
	calls := 0
	outcome, err := Poll(context.Background(), sleeper, PollPolicy{
		Interval:    500 * time.Millisecond,
		MaxAttempts: 20,
		DelayFirst:  true,
	}, func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if outcome.Done {
		t.Fatalf("expected poll not done")
	}
	if calls != 20 || outcome.Attempts != 20 {
		t.Fatalf("expected 20 attempts, got calls=%d attempts=%d", calls, outcome.Attempts)
	}
	if len(sleeper.delays) != 20 {
		t.Fatalf("expected 20 sleeps, got %d", len(sleeper.delays))
	}
	for _, delay := range sleeper.delays {
		if delay != 500*time.Millisecond {
			t.Fatalf("expected 500ms delay, got %s", delay)
		}
	}
}

func TestPoll_NoDelayBeforeFirstAttempt(t *testing.T) {
	sleeper := &countingSleeper{}
	outcome, err := Poll(context.Background(), sleeper, PollPolicy{Interval: time.Second}, func(_ context.Context, attempt int) (bool, error) {
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !outcome.Done || outcome.Attempts != 3 {
		t.Fatalf("expected done on attempt 3, got %#v", outcome)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 sleeps between 3 attempts, got %d", len(sleeper.delays))
	}
}

func TestPoll_ErrorsAreAbsorbed(t *testing.T) {
	boom := errors.New("connection refused")
	outcome, err := Poll(context.Background(), &countingSleeper{}, PollPolicy{MaxAttempts: 3}, func(context.Context, int) (bool, error) {
		return false, boom
	})
	if err != nil {
		t.Fatalf("expected absorbed error, got %v", err)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", outcome.Attempts)
	}
	if !errors.Is(outcome.LastErr, boom) {
		t.Fatalf("expected last error to be kept, got %v", outcome.LastErr)
	}
}

func TestPoll_UnboundedStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Poll(ctx, &countingSleeper{}, PollPolicy{}, func(context.Context, int) (bool, error) {
		calls++
		if calls == 50 {
			cancel()
		}
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls != 50 {
		t.Fatalf("expected polling to stop after cancel, got %d calls", calls)
	}
}

func TestTimerSleeper_WakesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	started := time.Now()
	if err := (TimerSleeper{}).Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if time.Since(started) > time.Second {
		t.Fatalf("expected sleeper to return promptly")
	}
}
