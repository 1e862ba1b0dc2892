package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/policy"
	"github.com/time-economy/internal/storage"
	"github.com/time-economy/internal/types"
)

// NeedStore defines the need persistence used by NeedService
type NeedStore interface {
	policy.CreationCounter
	List(ctx context.Context) ([]*models.Need, error)
	GetByID(ctx context.Context, id string) (*models.Need, error)
	CreateWithinLimit(ctx context.Context, need *models.Need, since time.Time, maxCount int) (bool, int, time.Time, error)
	Delete(ctx context.Context, id string, socialID types.SocialID) (bool, error)
}

// NeedServiceConfig holds the collaborators and admission policy of a NeedService
type NeedServiceConfig struct {
	Store        NeedStore
	Resolver     ClaimResolver
	Window       time.Duration
	MaxPerWindow int
	// Now defaults to time.Now
	Now func() time.Time
}

// NeedService lists, creates and deletes need listings
type NeedService struct {
	store        NeedStore
	resolver     ClaimResolver
	limiter      *policy.RateLimiter
	guard        *policy.OwnershipGuard
	window       time.Duration
	maxPerWindow int
}

// NewNeedService creates a new need service. Zero window or limit fall back
// to 24h and 3.
func NewNeedService(cfg *NeedServiceConfig) *NeedService {
	window := cfg.Window
	if window <= 0 {
		window = policy.DefaultWindow
	}
	maxPerWindow := cfg.MaxPerWindow
	if maxPerWindow <= 0 {
		maxPerWindow = policy.DefaultMaxCount
	}

	return &NeedService{
		store:        cfg.Store,
		resolver:     cfg.Resolver,
		limiter:      policy.NewRateLimiter(cfg.Store, cfg.Now),
		guard:        policy.NewOwnershipGuard(),
		window:       window,
		maxPerWindow: maxPerWindow,
	}
}

// CreateNeedInput is the body of a need post
type CreateNeedInput struct {
	SocialID      types.SocialID `json:"socialId" validate:"gt=0"`
	DisplayName   string         `json:"displayName" validate:"required,max=100"`
	Location      string         `json:"location,omitempty" validate:"max=100"`
	Text          string         `json:"text" validate:"required,max=280"`
	WalletAddress string         `json:"walletAddress" validate:"required,wallet"`
	RewardAmount  string         `json:"rewardAmount,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	Message       string         `json:"message,omitempty"`
}

func (in *CreateNeedInput) sanitize() {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Location = orDefault(in.Location, DefaultLocation)
	in.Text = sanitizeText(in.Text)
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
}

// DeleteNeedInput identifies the need to delete and carries the caller's proof
type DeleteNeedInput struct {
	ID            string         `json:"id" validate:"required,uuid"`
	SocialID      types.SocialID `json:"socialId" validate:"gt=0"`
	WalletAddress string         `json:"walletAddress" validate:"required,wallet"`
	Signature     string         `json:"signature,omitempty"`
	Message       string         `json:"message,omitempty"`
}

// ListNeeds returns all needs newest first
func (s *NeedService) ListNeeds(ctx context.Context) ([]*models.Need, error) {
	needs, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError("list needs", err)
	}
	return needs, nil
}

// CreateNeed admits and stores a new need for the verified caller.
func (s *NeedService) CreateNeed(ctx context.Context, headerSocialID string, input *CreateNeedInput) (*models.Need, error) {
	if input == nil {
		return nil, apperrors.NewValidationError("body", "is required")
	}

	p := startPipeline(ctx, "create_need", input.SocialID)

	input.sanitize()
	if err := validateInput(input); err != nil {
		return nil, p.reject(err)
	}
	reward, err := parseRewardAmount(input.RewardAmount)
	if err != nil {
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

	decision, err := s.limiter.AllowCreate(ctx, claim.SocialID, s.window, s.maxPerWindow)
	if err != nil {
		return nil, p.reject(apperrors.NewStoreError("count needs", err))
	}
	if !decision.Allowed {
		return nil, p.reject(apperrors.NewRateLimitError(decision.RetryAfterSeconds(), decision.Limit))
	}
	p.advance(StagePolicyChecked)

	need := &models.Need{
		ID:            uuid.NewString(),
		SocialID:      claim.SocialID,
		DisplayName:   input.DisplayName,
		Location:      input.Location,
		Text:          input.Text,
		RewardAmount:  reward,
		WalletAddress: claim.WalletAddress,
	}

	now := s.limiter.Now()
	created, count, oldest, err := s.store.CreateWithinLimit(ctx, need, policy.WindowStart(now, s.window), s.maxPerWindow)
	if err != nil {
		return nil, p.reject(apperrors.NewStoreError("insert need", err))
	}
	if !created {
		// Lost a race with a concurrent create from the same identity.
		late := &policy.Decision{Count: count, Limit: s.maxPerWindow}
		if !oldest.IsZero() {
			late.RetryAfter = oldest.Add(s.window).Sub(now)
		}
		return nil, p.reject(apperrors.NewRateLimitError(late.RetryAfterSeconds(), late.Limit))
	}
	p.advance(StagePersisted)
	p.done()

	return need, nil
}

// DeleteNeed removes a need owned by the verified caller. A missing need is
// NotFound regardless of who asks.
func (s *NeedService) DeleteNeed(ctx context.Context, headerSocialID string, input *DeleteNeedInput) error {
	if input == nil {
		return apperrors.NewValidationError("body", "is required")
	}

	p := startPipeline(ctx, "delete_need", input.SocialID)

	input.ID = strings.TrimSpace(input.ID)
	input.WalletAddress = strings.TrimSpace(input.WalletAddress)
	if err := validateInput(input); err != nil {
		return p.reject(err)
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
		return p.reject(err)
	}
	p.advance(StageIdentityVerified)

	need, err := s.store.GetByID(ctx, input.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return p.reject(apperrors.NewStoreError("get need", err))
	}

	var target policy.Ownable
	if need != nil {
		target = need
	}
	if err := s.guard.AllowDelete(target, claim, "need", input.ID); err != nil {
		return p.reject(err)
	}
	p.advance(StagePolicyChecked)

	removed, err := s.store.Delete(ctx, input.ID, claim.SocialID)
	if err != nil {
		return p.reject(apperrors.NewStoreError("delete need", fmt.Errorf("need %s: %w", input.ID, err)))
	}
	if !removed {
		return p.reject(apperrors.NewNotFoundError("need", input.ID))
	}
	p.advance(StagePersisted)
	p.done()

	return nil
}
