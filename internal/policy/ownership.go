package policy

import (
	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/types"
	"github.com/time-economy/internal/wallet"
)

// Ownable is a stored record that belongs to one identity and wallet.
type Ownable interface {
	OwnerSocialID() types.SocialID
	OwnerWallet() string
}

// OwnershipGuard decides whether a verified claim may mutate a stored record.
type OwnershipGuard struct{}

// NewOwnershipGuard creates an ownership guard.
func NewOwnershipGuard() *OwnershipGuard {
	return &OwnershipGuard{}
}

// AllowDelete returns nil when claim owns target: same social id and the same
// wallet ignoring case. A missing target (nil interface) is NotFound, never Forbidden.
func (g *OwnershipGuard) AllowDelete(target Ownable, claim *identity.Claim, resource, id string) error {
	if target == nil {
		return apperrors.NewNotFoundError(resource, id)
	}
	if !claim.CanWrite() {
		return apperrors.NewSignatureRequiredError()
	}
	if target.OwnerSocialID() != claim.SocialID {
		return apperrors.NewForbiddenError("record belongs to another identity")
	}
	if !wallet.Equal(target.OwnerWallet(), claim.WalletAddress) {
		return apperrors.NewForbiddenError("record was created with a different wallet")
	}
	return nil
}
