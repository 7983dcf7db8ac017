package provider

import (
	"context"
	"errors"
	"time"
)

var ErrPollTimeout = errors.New("provider: processing did not finish in time")

type PollSettings struct {
	Interval    time.Duration
	MaxAttempts int
}

var DefaultPollSettings = PollSettings{Interval: 2 * time.Second, MaxAttempts: 30}

// Poll calls check until it reports done or fails, at most MaxAttempts times,
// waiting Interval between calls. It never sleeps after the last attempt.
func Poll(ctx context.Context, s PollSettings, check func(ctx context.Context) (bool, error)) error {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultPollSettings.MaxAttempts
	}

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == s.MaxAttempts {
			break
		}

		timer := time.NewTimer(s.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ErrPollTimeout
}
