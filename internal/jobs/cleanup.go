package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/repository"
)

// CleanupJob periodically sweeps expired sessions and prunes old usage
// events. Both targets are optional: the Redis-backed session store expires
// through TTLs and passes a no-op sweep, and the usage repository is only
// present when a database is configured.
type CleanupJob struct {
	sessions  repository.SessionStore
	usageRepo repository.UsageRepository
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(
	sessions repository.SessionStore,
	usageRepo repository.UsageRepository,
	retention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		sessions:  sessions,
		usageRepo: usageRepo,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "sessions", j.sessions.DeleteExpired)
	if j.usageRepo != nil {
		j.runCleanup(ctx, "usage events", func(ctx context.Context) (int64, error) {
			return j.usageRepo.DeleteBefore(ctx, time.Now().Add(-j.retention))
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
