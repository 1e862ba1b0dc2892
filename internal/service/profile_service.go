package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/storage"
	"github.com/time-economy/internal/types"
)

// ProfileStore defines the profile persistence used by ProfileService
type ProfileStore interface {
	GetBySocialID(ctx context.Context, socialID types.SocialID) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// ProfileService reads and saves profiles
type ProfileService struct {
	store    ProfileStore
	resolver ClaimResolver
}

// NewProfileService creates a new profile service
func NewProfileService(store ProfileStore, resolver ClaimResolver) *ProfileService {
	return &ProfileService{store: store, resolver: resolver}
}

// SaveProfileInput is the body of a profile save
type SaveProfileInput struct {
	SocialID      types.SocialID `json:"socialId" validate:"gt=0"`
	DisplayName   string         `json:"displayName" validate:"required,max=100"`
	AvatarURL     *string        `json:"avatarUrl,omitempty" validate:"omitempty,max=512,http_url"`
	City          string         `json:"city,omitempty" validate:"max=100"`
	Bio           string         `json:"bio,omitempty" validate:"max=500"`
	WalletAddress string         `json:"walletAddress" validate:"required,wallet"`
	Signature     string         `json:"signature,omitempty"`
	Message       string         `json:"message,omitempty"`
}

func (in *SaveProfileInput) sanitize() {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.City = orDefault(in.City, DefaultCity)
	in.Bio = strings.TrimSpace(in.Bio)
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	if in.AvatarURL != nil {
		trimmed := strings.TrimSpace(*in.AvatarURL)
		if trimmed == "" {
			in.AvatarURL = nil
		} else {
			in.AvatarURL = &trimmed
		}
	}
}

// GetProfile returns the profile of socialID, or nil when the identity has none.
func (s *ProfileService) GetProfile(ctx context.Context, socialID types.SocialID) (*models.Profile, error) {
	if !socialID.IsValid() {
		return nil, apperrors.NewValidationError("socialId", "must be a positive integer")
	}

	profile, err := s.store.GetBySocialID(ctx, socialID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreError("get profile", err)
	}
	return profile, nil
}

// SaveProfile creates or replaces the caller's profile. The stored wallet is
// the verified claim's wallet; rebinding needs a signature over the new wallet.
func (s *ProfileService) SaveProfile(ctx context.Context, headerSocialID string, input *SaveProfileInput) (*models.Profile, error) {
	if input == nil {
		return nil, apperrors.NewValidationError("body", "is required")
	}

	p := startPipeline(ctx, "save_profile", input.SocialID)

	input.sanitize()
	if err := validateInput(input); err != nil {
		return nil, p.reject(err)
	}
	p.advance(StageParsed)

	claim, err := s.resolver.Resolve(ctx, &identity.Request{
		HeaderSocialID: headerSocialID,
		BodySocialID:   input.SocialID,
		WalletAddress:  input.WalletAddress,
		Message:        input.Message,
		Signature:      input.Signature,
		Mode:           identity.ModeMutation,
	})
	if err != nil {
		return nil, p.reject(err)
	}
	if !claim.CanWrite() {
		return nil, p.reject(apperrors.NewSignatureRequiredError())
	}
	p.advance(StageIdentityVerified)

	// Ownership of a profile is the identity itself; the resolver already
	// enforced the wallet binding.
	p.advance(StagePolicyChecked)

	walletAddress := claim.WalletAddress
	profile := &models.Profile{
		SocialID:      claim.SocialID,
		DisplayName:   input.DisplayName,
		AvatarURL:     input.AvatarURL,
		City:          input.City,
		Bio:           input.Bio,
		WalletAddress: &walletAddress,
	}
	if err := s.store.Upsert(ctx, profile); err != nil {
		return nil, p.reject(apperrors.NewStoreError("upsert profile", fmt.Errorf("social id %d: %w", claim.SocialID, err)))
	}
	p.advance(StagePersisted)
	p.done()

	return profile, nil
}
