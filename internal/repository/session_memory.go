package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vibetutor/gateway-server-go/internal/model"
	"github.com/vibetutor/gateway-server-go/internal/util"
)

// MemorySessionStore keeps sessions in a mutex-guarded map. Sessions are
// lazily evicted on Get and opportunistically swept on Create; the cleanup
// job calls DeleteExpired on a timer as a backstop.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	duration time.Duration
	dailyCap int

	// now is swappable so expiry tests don't have to sleep.
	now func() time.Time
}

func NewMemorySessionStore(duration time.Duration, dailyCap int) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*model.Session),
		duration: duration,
		dailyCap: dailyCap,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(ctx context.Context) (*model.Session, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	session := &model.Session{
		Token:     token,
		CreatedAt: now,
		DayStart:  model.DayStartUTC(now),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session
	s.sweepLocked(now)

	return copySession(session), nil
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(token)
	if session == nil {
		return nil, nil
	}
	return copySession(session), nil
}

func (s *MemorySessionStore) Touch(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(token)
	if session == nil {
		return nil, nil
	}

	session.RequestCount++

	today := model.DayStartUTC(s.now())
	if today.After(session.DayStart) {
		session.DayStart = today
		session.DailyUsage = 0
	}

	if session.DailyUsage >= s.dailyCap {
		return copySession(session), ErrDailyLimitReached
	}
	session.DailyUsage++

	return copySession(session), nil
}

func (s *MemorySessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(s.now()), nil
}

func (s *MemorySessionStore) getLocked(token string) *model.Session {
	session, exists := s.sessions[token]
	if !exists {
		return nil
	}
	if s.now().Sub(session.CreatedAt) >= s.duration {
		delete(s.sessions, token)
		return nil
	}
	return session
}

func (s *MemorySessionStore) sweepLocked(now time.Time) int64 {
	var removed int64
	for token, session := range s.sessions {
		if now.Sub(session.CreatedAt) >= s.duration {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// copySession hands callers a snapshot so they cannot mutate store state
// outside the lock.
func copySession(s *model.Session) *model.Session {
	c := *s
	return &c
}
