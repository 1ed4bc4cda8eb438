package services

import (
	"context"
	"time"

	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/pkg/auth"
	apperrors "letters-backend/pkg/errors"
	"letters-backend/pkg/utils"

	"go.uber.org/zap"
)

// LetterService implements the letter publishing and archive use cases.
type LetterService struct {
	letters *ddb.LetterRepository
	logger  *zap.Logger
}

// NewLetterService creates a LetterService.
func NewLetterService(letters *ddb.LetterRepository, logger *zap.Logger) *LetterService {
	return &LetterService{letters: letters, logger: logger}
}

// PublishLetterRequest is the payload for publishing letter content.
type PublishLetterRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// Publish writes new content for a letter date, snapshotting any previous
// content first. Admin only; the router enforces the group, the service
// re-checks so no alternative entry point can skip it.
func (s *LetterService) Publish(ctx context.Context, user *auth.UserContext, date string, req PublishLetterRequest) (*domain.Letter, error) {
	if !user.IsAdmin() {
		return nil, apperrors.NewForbiddenError("publishing letters requires the admin group")
	}
	if err := validateLetterDate(date); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.letters.Publish(ctx, date, req.Title, req.Content, user.UserID, utils.NowRFC3339())
}

// Get returns the current content for a letter date.
func (s *LetterService) Get(ctx context.Context, date string) (*domain.Letter, error) {
	if err := validateLetterDate(date); err != nil {
		return nil, err
	}
	return s.letters.GetCurrent(ctx, date)
}

// Versions returns a letter's revision history, newest first.
func (s *LetterService) Versions(ctx context.Context, date string) ([]domain.LetterVersion, error) {
	if err := validateLetterDate(date); err != nil {
		return nil, err
	}
	return s.letters.ListVersions(ctx, date)
}

// List returns a page of the letter archive, newest date first.
func (s *LetterService) List(ctx context.Context, limit int32, cursor string) (*ddb.LetterPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 31
	}
	return s.letters.List(ctx, limit, cursor)
}

// validateLetterDate enforces the YYYY-MM-DD date that doubles as the
// letter's identity and its archive sort key.
func validateLetterDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return apperrors.NewValidationError("date must be YYYY-MM-DD")
	}
	return nil
}
