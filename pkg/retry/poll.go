package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Outcome tells whether Poll saw the predicate succeed.
type Outcome int

const (
	TimedOut Outcome = iota
	Succeeded
)

func (o Outcome) String() string {
	if o == Succeeded {
		return "succeeded"
	}
	return "timed_out"
}

// Result describes a finished Poll.
type Result struct {
	Outcome  Outcome
	Attempts int
	// LastErr is the last error returned by the predicate, if any.
	LastErr error
}

func (r Result) OK() bool { return r.Outcome == Succeeded }

// Poll evaluates predicate up to maxAttempts times, sleeping interval between
// attempts. Predicate errors count as a failed attempt. The only error Poll
// returns is the context error when ctx ends first.
func Poll(
	ctx context.Context,
	predicate func(context.Context) (bool, error),
	interval time.Duration,
	maxAttempts int,
) (Result, error) {
	var res Result
	if maxAttempts <= 0 {
		return res, nil
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for res.Attempts < maxAttempts {
		res.Attempts++
		ok, err := predicate(ctx)
		if err != nil {
			res.LastErr = err
		} else if ok {
			res.Outcome = Succeeded
			return res, nil
		}
		if res.Attempts == maxAttempts {
			break
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-timer.C:
		}
	}
	return res, nil
}

// Backoff returns base * 2^(attempt-1), capped at maxBackoff.
func Backoff(attempt int, base, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := time.Duration(math.Pow(2, float64(attempt-1)) * float64(base))
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

// Jitter returns a random duration in [0, maxJitter].
func Jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}
