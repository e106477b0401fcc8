package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/audit"
	"github.com/vibetutor/gateway-server-go/internal/model"
	"github.com/vibetutor/gateway-server-go/internal/repository"
	"github.com/vibetutor/gateway-server-go/internal/util"
)

type CreateSessionResult struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// SessionService issues sessions and answers the parent-facing stats query.
type SessionService struct {
	store    repository.SessionStore
	duration time.Duration
}

func NewSessionService(store repository.SessionStore, duration time.Duration) *SessionService {
	return &SessionService{store: store, duration: duration}
}

func (s *SessionService) CreateSession(ctx context.Context, clientIP string) (*CreateSessionResult, error) {
	session, err := s.store.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionCreate,
		TokenHash: util.HashToken(session.Token),
		IP:        clientIP,
	})

	log.Info().
		Str("token", util.MaskToken(session.Token)).
		Dur("duration", s.duration).
		Msg("session created")

	return &CreateSessionResult{
		Token:     session.Token,
		ExpiresIn: int(s.duration.Seconds()),
	}, nil
}

// Stats returns usage counters for a live session, or nil when the token is
// unknown or expired.
func (s *SessionService) Stats(ctx context.Context, token string) (*model.SessionStats, error) {
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	return &model.SessionStats{
		RequestCount:      session.RequestCount,
		DailyUsage:        session.DailyUsage,
		SessionAgeMinutes: int(session.Age().Minutes()),
	}, nil
}
