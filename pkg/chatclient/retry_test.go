package chatclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{10, 10 * time.Second},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, policy.backoff(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestRetryPolicyBackoffRespectsCapBelowBase(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: 500 * time.Millisecond}

	assert.Equal(t, 500*time.Millisecond, policy.backoff(1))
}

func TestSleep(t *testing.T) {
	t.Run("returns after the delay", func(t *testing.T) {
		start := time.Now()
		err := sleep(context.Background(), 10*time.Millisecond)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("aborts on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := sleep(ctx, time.Minute)

		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
