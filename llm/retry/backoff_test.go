package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/types"
)

func fastPolicy(maxRetries int) *Policy {
	return &Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestBackoffRetryer_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestBackoffRetryer_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	r := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	calls := 0
	sentinel := errors.New("still failing")
	err := r.Do(context.Background(), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestBackoffRetryer_NonRetryableShortCircuits(t *testing.T) {
	t.Parallel()

	r := NewBackoffRetryer(fastPolicy(5), zap.NewNop())

	calls := 0
	fatal := types.NewError(types.ErrUnauthorized, "bad key").WithRetryable(false)
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestBackoffRetryer_ContextCancel(t *testing.T) {
	t.Parallel()

	r := NewBackoffRetryer(&Policy{
		MaxRetries:   3,
		InitialDelay: time.Hour, // never elapses
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func() error { return errors.New("transient") })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayCapped(t *testing.T) {
	t.Parallel()

	r := &backoffRetryer{policy: &Policy{
		MaxRetries:   10,
		InitialDelay: time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}, logger: zap.NewNop()}

	require.Equal(t, time.Second, r.calculateDelay(1))
	require.Equal(t, 2*time.Second, r.calculateDelay(2))
	require.Equal(t, 4*time.Second, r.calculateDelay(3))
	require.Equal(t, 4*time.Second, r.calculateDelay(8), "capped at MaxDelay")
}
