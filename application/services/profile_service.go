package services

import (
	"context"

	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/pkg/auth"
	apperrors "letters-backend/pkg/errors"
	"letters-backend/pkg/utils"

	"go.uber.org/zap"
)

// ProfileService implements the family-member profile use cases.
type ProfileService struct {
	profiles *ddb.ProfileRepository
	logger   *zap.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(profiles *ddb.ProfileRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// EnsureFromContext guarantees the caller has a profile row, created from
// their token claims on first sight.
func (s *ProfileService) EnsureFromContext(ctx context.Context, user *auth.UserContext) error {
	now := utils.NowRFC3339()
	return s.profiles.Ensure(ctx, domain.Profile{
		UserID:      user.UserID,
		Email:       user.Email,
		DisplayName: user.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Get returns one member's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("userId is required")
	}
	return s.profiles.Get(ctx, userID)
}

// List returns every family member.
func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

// UpdateProfileRequest is the payload for editing one's own profile.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url"`
	EmailOptOut *bool   `json:"emailOptOut"`
}

// Update edits the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, user *auth.UserContext, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.profiles.Update(ctx, user.UserID, ddb.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		EmailOptOut: req.EmailOptOut,
	})
}
