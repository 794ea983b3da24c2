package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Parallel()

	t.Run("Succeeds_On_Third_Attempt", func(t *testing.T) {
		calls := 0
		res, err := Poll(context.Background(), func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		}, time.Millisecond, 10)
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, 3, res.Attempts)
	})

	t.Run("Gives_Up_After_Max_Attempts", func(t *testing.T) {
		boom := errors.New("flag service down")
		res, err := Poll(context.Background(), func(context.Context) (bool, error) {
			return false, boom
		}, time.Millisecond, 4)
		require.NoError(t, err)
		assert.Equal(t, TimedOut, res.Outcome)
		assert.Equal(t, 4, res.Attempts)
		assert.ErrorIs(t, res.LastErr, boom)
	})

	t.Run("Zero_Attempts_Never_Calls_Predicate", func(t *testing.T) {
		res, err := Poll(context.Background(), func(context.Context) (bool, error) {
			t.Fatal("predicate must not run")
			return false, nil
		}, time.Millisecond, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Attempts)
	})

	t.Run("Stops_When_Context_Ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		res, err := Poll(ctx, func(context.Context) (bool, error) {
			cancel()
			return false, nil
		}, time.Hour, 10)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, res.Attempts)
	})
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	maxBackoff := 10 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 500 * time.Millisecond},
		{attempt: 2, want: time.Second},
		{attempt: 3, want: 2 * time.Second},
		{attempt: 10, want: maxBackoff},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Backoff(tc.attempt, 500*time.Millisecond, maxBackoff), "attempt=%d", tc.attempt)
	}
}

func TestJitterDeterministic(t *testing.T) {
	t.Parallel()

	maxJitter := 200 * time.Millisecond
	got := Jitter(rand.New(rand.NewSource(1)), maxJitter)
	assert.GreaterOrEqual(t, got, time.Duration(0))
	assert.LessOrEqual(t, got, maxJitter)
	assert.Equal(t, got, Jitter(rand.New(rand.NewSource(1)), maxJitter))
	assert.Zero(t, Jitter(nil, maxJitter))
}
