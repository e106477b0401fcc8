package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vibetutor/gateway-server-go/internal/audit"
	apperrors "github.com/vibetutor/gateway-server-go/internal/errors"
	"github.com/vibetutor/gateway-server-go/internal/model"
	"github.com/vibetutor/gateway-server-go/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	validate    *validator.Validate
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validator.New(),
	}
}

// POST /api/chat
// Forwards a moderated chat completion request for an authenticated session.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, apperrors.Unauthorized("Missing session token"))
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperrors.ValidationError("Messages are required; role must be system, user or assistant"))
		return
	}

	completion, err := h.chatService.HandleChat(r.Context(), token, audit.ClientIP(r), req.Messages, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completion)
}
