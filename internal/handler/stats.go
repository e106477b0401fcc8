package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/audit"
	apperrors "github.com/vibetutor/gateway-server-go/internal/errors"
	"github.com/vibetutor/gateway-server-go/internal/service"
	"github.com/vibetutor/gateway-server-go/internal/util"
)

// ParentPasswordHeader carries the optional parent password protecting the
// stats endpoint when STATS_PASSWORD_HASH is configured.
const ParentPasswordHeader = "X-Parent-Password"

type StatsHandler struct {
	sessionService *service.SessionService
	passwordHash   string
}

// NewStatsHandler builds the stats endpoint. passwordHash may be empty, in
// which case the endpoint is open (the token itself is the secret).
func NewStatsHandler(sessionService *service.SessionService, passwordHash string) *StatsHandler {
	return &StatsHandler{
		sessionService: sessionService,
		passwordHash:   passwordHash,
	}
}

// GET /api/stats/{token}
// Returns usage counters for a live session so a parent can check how much
// their child has been chatting.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperrors.NotFound("Session"))
		return
	}

	if h.passwordHash != "" {
		password := r.Header.Get(ParentPasswordHeader)
		if !util.CheckPasswordHash(password, h.passwordHash) {
			audit.LogFromRequest(r, audit.Event{
				Type:      audit.EventStatsAuthFailure,
				TokenHash: util.HashToken(token),
			})
			writeError(w, apperrors.Unauthorized("Invalid parent password"))
			return
		}
	}

	stats, err := h.sessionService.Stats(r.Context(), token)
	if err != nil {
		log.Error().Err(err).Msg("failed to load session stats")
		writeError(w, apperrors.Internal("Failed to load stats").WithCause(err))
		return
	}
	if stats == nil {
		writeError(w, apperrors.NotFound("Session"))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
