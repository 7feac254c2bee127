package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicy_DelayWithinRange(t *testing.T) {
	p := Jitter(3, 10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := p.Delay()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 20*time.Millisecond)
	}
}

func TestPolicy_FixedDelay(t *testing.T) {
	require.Equal(t, 3*time.Second, Fixed(3, 3*time.Second).Delay())
	require.Equal(t, time.Duration(0), Policy{}.Delay())
}

func TestPolicy_AttemptsFloor(t *testing.T) {
	require.Equal(t, 1, Policy{}.Attempts())
	require.Equal(t, 4, Policy{MaxAttempts: 4}.Attempts())
}

func TestPolicy_DoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Fixed(5, 0).Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestPolicy_DoExhausted(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(context.Context, int) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
