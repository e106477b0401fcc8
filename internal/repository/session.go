package repository

import (
	"context"
	"errors"

	"github.com/vibetutor/gateway-server-go/internal/model"
)

// ErrDailyLimitReached is returned by Touch once a session has consumed its
// daily quota. The request count still increments; only chat usage stops.
var ErrDailyLimitReached = errors.New("daily usage limit reached")

// SessionStore is the registry of live sessions. Implementations must treat
// an expired session as nonexistent on Get even if it has not been swept,
// and must make Touch atomic under concurrent calls for one token.
type SessionStore interface {
	// Create registers a fresh session and returns its opaque token.
	Create(ctx context.Context) (*model.Session, error)

	// Get returns the session for token, or nil when it is unknown or
	// expired. Expired entries are evicted as a side effect.
	Get(ctx context.Context, token string) (*model.Session, error)

	// Touch increments the request counter and the daily usage counter,
	// applying the UTC calendar-day rollover. It returns
	// ErrDailyLimitReached once the daily cap is exhausted.
	Touch(ctx context.Context, token string) (*model.Session, error)

	// DeleteExpired sweeps sessions past their duration and reports how
	// many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
