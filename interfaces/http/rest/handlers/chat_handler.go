package handlers

import (
	"net/http"

	"letters-backend/application/services"
	"letters-backend/pkg/auth"
	"letters-backend/pkg/common"
	apperrors "letters-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChatHandler serves the conversation and message endpoints.
type ChatHandler struct {
	chat   *services.ChatService
	logger *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chat *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Start handles POST /conversations.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.StartConversationRequest
	if err := common.ParseJSONBody(r, &req, maxCommentBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	conv, err := h.chat.Start(r.Context(), user, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, conv)
}

// List handles GET /conversations.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	views, err := h.chat.ListConversations(r.Context(), user)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, views)
}

// Send handles POST /conversations/{convID}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.SendMessageRequest
	if err := common.ParseJSONBody(r, &req, maxCommentBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	msg, err := h.chat.Send(r.Context(), user, chi.URLParam(r, "convID"), req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, msg)
}

// Messages handles GET /conversations/{convID}/messages.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	page, err := h.chat.ListMessages(r.Context(), user, chi.URLParam(r, "convID"), queryLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}

// MarkRead handles POST /conversations/{convID}/read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.chat.MarkRead(r.Context(), user, chi.URLParam(r, "convID")); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"read": true})
}
