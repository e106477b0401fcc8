package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// UsageEvent is one recorded gateway outcome, keyed by the sha256 of the
// session token. Message content is never stored.
type UsageEvent struct {
	ID        int64     `db:"id"`
	TokenHash string    `db:"token_hash"`
	ClientIP  string    `db:"client_ip"`
	Event     string    `db:"event"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	UsageEventChatOK         = "chat_ok"
	UsageEventContentBlocked = "content_blocked"
	UsageEventRateLimited    = "rate_limited"
	UsageEventDailyLimit     = "daily_limit"
	UsageEventUpstreamError  = "upstream_error"
)

// UsageRepository persists usage events for abuse review. It is optional:
// the gateway runs without it when no database is configured.
type UsageRepository interface {
	Create(ctx context.Context, tokenHash, clientIP, event string) error
	CountByTokenHashSince(ctx context.Context, tokenHash string, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type usageRepo struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Create(ctx context.Context, tokenHash, clientIP, event string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_events (token_hash, client_ip, event, created_at)
		VALUES ($1, $2, $3, NOW())
	`, tokenHash, clientIP, event)
	return err
}

func (r *usageRepo) CountByTokenHashSince(ctx context.Context, tokenHash string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM usage_events
		WHERE token_hash = $1 AND created_at >= $2
	`, tokenHash, since)
	return count, err
}

func (r *usageRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM usage_events WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
