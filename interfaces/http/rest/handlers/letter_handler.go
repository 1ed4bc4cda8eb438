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

const maxLetterBody = 1024 * 1024

// LetterHandler serves the letter archive endpoints.
type LetterHandler struct {
	letters *services.LetterService
	logger  *zap.Logger
}

// NewLetterHandler creates a LetterHandler.
func NewLetterHandler(letters *services.LetterService, logger *zap.Logger) *LetterHandler {
	return &LetterHandler{letters: letters, logger: logger}
}

// Publish handles PUT /letters/{date}. The route is gated on the admin group;
// the service re-checks.
func (h *LetterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.PublishLetterRequest
	if err := common.ParseJSONBody(r, &req, maxLetterBody); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	letter, err := h.letters.Publish(r.Context(), user, chi.URLParam(r, "date"), req)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, letter)
}

// Get handles GET /letters/{date}.
func (h *LetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	letter, err := h.letters.Get(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, letter)
}

// Versions handles GET /letters/{date}/versions.
func (h *LetterHandler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.letters.Versions(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, versions)
}

// List handles GET /letters.
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.letters.List(r.Context(), queryLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}
