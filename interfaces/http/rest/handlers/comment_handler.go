// Package handlers implements the REST endpoints.
package handlers

import (
	"net/http"
	"strconv"

	"letters-backend/application/services"
	"letters-backend/pkg/auth"
	"letters-backend/pkg/common"
	apperrors "letters-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxCommentBody = 64 * 1024

// CommentHandler serves the comment and reaction endpoints.
type CommentHandler struct {
	comments *services.CommentService
	logger   *zap.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *services.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// Create handles POST /comments.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.CreateCommentRequest
	if err := common.ParseJSONBody(r, &req, maxCommentBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	comment, err := h.comments.Create(r.Context(), user, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, comment)
}

// ListByItem handles GET /items/{itemID}/comments.
func (h *CommentHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	page, err := h.comments.List(r.Context(), itemID, queryLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}

type deleteCommentRequest struct {
	ItemID    string `json:"itemId"`
	CommentID string `json:"commentId"`
}

// Delete handles DELETE /comments.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req deleteCommentRequest
	if err := common.ParseJSONBody(r, &req, maxCommentBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	if err := h.comments.Delete(r.Context(), user, req.ItemID, req.CommentID); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ToggleReaction handles POST /reactions/toggle.
func (h *CommentHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.ToggleReactionRequest
	if err := common.ParseJSONBody(r, &req, maxCommentBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	result, err := h.comments.ToggleReaction(r.Context(), user, req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// queryLimit reads the limit query parameter; the services clamp the value.
func queryLimit(r *http.Request) int32 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return int32(limit)
}
