// Package identity turns the identity signals on a request into a single
// verified (social id, wallet) claim or a rejection.
//
// Three signals are reconciled: the platform-asserted transport header, the
// self-reported body field, and an optional wallet signature over a message.
// Only a valid signature grants write capability; header trust alone is
// read-only.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/logging"
	"github.com/time-economy/internal/signature"
	"github.com/time-economy/internal/types"
	"github.com/time-economy/internal/wallet"
)

// Mode is the kind of operation a claim is resolved for.
type Mode int

const (
	// ModeRead accepts header-trust-only claims
	ModeRead Mode = iota
	// ModeMutation requires a verified signature
	ModeMutation
)

// MaxMessageLifetime bounds how far in the future a signed mutation message may expire.
const MaxMessageLifetime = 24 * time.Hour

// BoundWalletReader looks up the wallet bound to an identity.
// It returns "" when the identity has no profile or no bound wallet.
type BoundWalletReader interface {
	BoundWallet(ctx context.Context, socialID types.SocialID) (string, error)
}

// NonceConsumer atomically consumes a previously issued sign-in nonce.
type NonceConsumer interface {
	Consume(ctx context.Context, nonce string) (bool, error)
}

// Request carries the identity signals found on an inbound request.
type Request struct {
	HeaderSocialID string // raw header value, empty when absent
	BodySocialID   types.SocialID
	WalletAddress  string
	Message        string
	Signature      string
	Mode           Mode
}

func (r *Request) hasSignature() bool {
	return strings.TrimSpace(r.Signature) != "" || strings.TrimSpace(r.Message) != ""
}

// Claim is the per-request outcome of identity resolution. It is never persisted.
type Claim struct {
	SocialID      types.SocialID   `json:"socialId"`
	WalletAddress string           `json:"walletAddress,omitempty"`
	Verified      bool             `json:"verified"`
	Capability    types.Capability `json:"capability"`
	Reason        string           `json:"reason,omitempty"`
}

// CanWrite reports whether the claim may authorize a mutation.
func (c *Claim) CanWrite() bool {
	return c != nil && c.Verified && c.Capability == types.CapabilityWrite
}

// ResolverConfig holds the collaborators and policy switches of a Resolver.
type ResolverConfig struct {
	Profiles BoundWalletReader
	// Nonces is optional; without it nonce lines are not checked.
	Nonces                NonceConsumer
	RequireIdentityHeader bool
	RequireNonce          bool
	// Now defaults to time.Now
	Now func() time.Time
}

// Resolver implements the identity claim policy.
type Resolver struct {
	profiles      BoundWalletReader
	nonces        NonceConsumer
	requireHeader bool
	requireNonce  bool
	now           func() time.Time
}

// NewResolver creates a resolver.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile reader is required")
	}
	if cfg.RequireNonce && cfg.Nonces == nil {
		return nil, fmt.Errorf("nonce store is required when nonces are mandatory")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		profiles:      cfg.Profiles,
		nonces:        cfg.Nonces,
		requireHeader: cfg.RequireIdentityHeader,
		requireNonce:  cfg.RequireNonce,
		now:           now,
	}, nil
}

// Resolve reconciles the identity signals on req. On rejection the returned
// claim has Verified=false and a Reason, and the error is a categorized
// pipeline error.
func (r *Resolver) Resolve(ctx context.Context, req *Request) (*Claim, error) {
	logger := logging.FromContext(ctx)

	claim, err := r.resolve(ctx, req)
	if err != nil {
		reason := apperrors.Categorize(err).Code
		logger.WithFields(map[string]interface{}{
			"socialId": int64(req.BodySocialID),
			"reason":   reason,
		}).Info("Identity claim rejected")

		return &Claim{
			SocialID:   req.BodySocialID,
			Verified:   false,
			Capability: types.CapabilityNone,
			Reason:     reason,
		}, err
	}

	return claim, nil
}

func (r *Resolver) resolve(ctx context.Context, req *Request) (*Claim, error) {
	// Body id
	if !req.BodySocialID.IsValid() {
		return nil, apperrors.NewValidationError("socialId", "must be a positive integer")
	}

	// Header id
	header := strings.TrimSpace(req.HeaderSocialID)
	if header == "" {
		if r.requireHeader && req.Mode == ModeMutation {
			return nil, apperrors.NewIdentityMismatchError("identity header missing")
		}
	} else {
		headerID, err := types.ParseSocialID(header)
		if err != nil || headerID != req.BodySocialID {
			return nil, apperrors.NewIdentityMismatchError("identity header does not match request body")
		}
	}

	var claimed string
	if strings.TrimSpace(req.WalletAddress) != "" {
		normalized, err := wallet.Normalize(req.WalletAddress)
		if err != nil {
			return nil, apperrors.NewValidationError("walletAddress", "must match ^0x[0-9a-fA-F]{40}$")
		}
		claimed = normalized
	}

	// Signature
	signed := req.hasSignature()
	proved := signed && claimed != "" && signature.Verify(claimed, req.Message, req.Signature)

	var fields signedFields
	if proved {
		fields = parseSignedMessage(req.Message)
		if fields.SocialID != "" {
			stated, err := types.ParseSocialID(fields.SocialID)
			if err != nil || stated != req.BodySocialID {
				return nil, apperrors.NewIdentityMismatchError("signed message names a different identity")
			}
		}
		if fields.ExpirationTime != nil && !r.now().Before(*fields.ExpirationTime) {
			return nil, apperrors.NewSignatureInvalidError()
		}
		if req.Mode == ModeMutation {
			if err := r.checkMutationMessage(fields); err != nil {
				return nil, err
			}
		}
	}

	// Wallet binding: a different wallet needs a fresh signature over it,
	// and the identity itself must be asserted by the platform header.
	if claimed != "" {
		bound, err := r.profiles.BoundWallet(ctx, req.BodySocialID)
		if err != nil {
			return nil, apperrors.NewStoreError("bound wallet lookup", err)
		}
		if bound != "" && !wallet.Equal(bound, claimed) && (!proved || header == "") {
			return nil, apperrors.NewRebindDeniedError(bound)
		}
	}

	if signed && !proved {
		return nil, apperrors.NewSignatureInvalidError()
	}

	if !signed {
		if req.Mode == ModeMutation {
			return nil, apperrors.NewSignatureRequiredError()
		}
		return &Claim{
			SocialID:      req.BodySocialID,
			WalletAddress: claimed,
			Verified:      false,
			Capability:    types.CapabilityRead,
		}, nil
	}

	if err := r.consumeNonce(ctx, req, fields.Nonce); err != nil {
		return nil, err
	}

	return &Claim{
		SocialID:      req.BodySocialID,
		WalletAddress: claimed,
		Verified:      true,
		Capability:    types.CapabilityWrite,
	}, nil
}

// checkMutationMessage requires a signed mutation message to name the identity
// it acts for and to be limited in time, either by an expiration time or by a
// nonce that can be burned.
func (r *Resolver) checkMutationMessage(fields signedFields) error {
	if fields.SocialID == "" {
		return apperrors.NewIdentityMismatchError("signed message does not name the identity")
	}
	if fields.ExpirationTime != nil {
		if fields.ExpirationTime.After(r.now().Add(MaxMessageLifetime)) {
			return apperrors.NewSignatureInvalidError()
		}
		return nil
	}
	if fields.Nonce == "" || r.nonces == nil {
		return apperrors.NewNonceInvalidError("signed message carries neither a nonce nor an expiration time")
	}
	return nil
}

// consumeNonce burns the message nonce so the same signed message cannot be replayed.
func (r *Resolver) consumeNonce(ctx context.Context, req *Request, nonce string) error {
	if nonce == "" {
		if r.requireNonce && req.Mode == ModeMutation {
			return apperrors.NewNonceInvalidError("signed message carries no nonce")
		}
		return nil
	}
	if r.nonces == nil {
		return nil
	}

	ok, err := r.nonces.Consume(ctx, nonce)
	if err != nil {
		return apperrors.NewStoreError("consume nonce", err)
	}
	if !ok {
		return apperrors.NewNonceInvalidError("nonce expired or already used")
	}
	return nil
}
