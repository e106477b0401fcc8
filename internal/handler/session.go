package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vibetutor/gateway-server-go/internal/audit"
	apperrors "github.com/vibetutor/gateway-server-go/internal/errors"
	"github.com/vibetutor/gateway-server-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// POST /api/session/init
// Issues a fresh anonymous session token. No body or credentials required;
// the per-IP init limiter in front of this route is the only gate.
func (h *SessionHandler) Init(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.CreateSession(r.Context(), audit.ClientIP(r))
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		writeError(w, apperrors.Internal("Failed to create session").WithCause(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
