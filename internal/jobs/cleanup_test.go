package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibetutor/gateway-server-go/internal/repository"
)

type mockUsageRepo struct {
	deleteCalls  atomic.Int32
	deletedCount int64
	lastCutoff   atomic.Value
}

func (m *mockUsageRepo) Create(ctx context.Context, tokenHash, clientIP, event string) error {
	return nil
}

func (m *mockUsageRepo) CountByTokenHashSince(ctx context.Context, tokenHash string, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockUsageRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.deleteCalls.Add(1)
	m.lastCutoff.Store(cutoff)
	return m.deletedCount, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		sessions := repository.NewMemorySessionStore(30*time.Minute, 100)
		job := NewCleanupJob(sessions, nil, 30*24*time.Hour, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("starts and stops without panic", func(t *testing.T) {
		sessions := repository.NewMemorySessionStore(30*time.Minute, 100)
		job := NewCleanupJob(sessions, &mockUsageRepo{}, 30*24*time.Hour, 100*time.Millisecond)

		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()
	})

	t.Run("prunes usage events on start with retention cutoff", func(t *testing.T) {
		sessions := repository.NewMemorySessionStore(30*time.Minute, 100)
		usageRepo := &mockUsageRepo{deletedCount: 7}
		retention := 30 * 24 * time.Hour

		job := NewCleanupJob(sessions, usageRepo, retention, time.Hour)
		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		require.GreaterOrEqual(t, usageRepo.deleteCalls.Load(), int32(1))
		cutoff, ok := usageRepo.lastCutoff.Load().(time.Time)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(-retention), cutoff, time.Second)
	})

	t.Run("tolerates missing usage repository", func(t *testing.T) {
		sessions := repository.NewMemorySessionStore(30*time.Minute, 100)
		job := NewCleanupJob(sessions, nil, 30*24*time.Hour, time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()
	})
}
