// Package models provides data models for the time-economy API.
package models

import (
	"time"

	"github.com/time-economy/internal/types"
)

// Profile is the single row kept per social identity.
// A non-nil WalletAddress is the wallet bound to the identity.
type Profile struct {
	SocialID      types.SocialID `json:"socialId" db:"social_id"`
	DisplayName   string         `json:"displayName" db:"display_name"`
	AvatarURL     *string        `json:"avatarUrl,omitempty" db:"avatar_url"`
	City          string         `json:"city" db:"city"`
	Bio           string         `json:"bio" db:"bio"`
	WalletAddress *string        `json:"walletAddress" db:"wallet_address"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}

// OwnerSocialID implements policy.Ownable
func (p *Profile) OwnerSocialID() types.SocialID {
	return p.SocialID
}

// OwnerWallet implements policy.Ownable
func (p *Profile) OwnerWallet() string {
	if p.WalletAddress == nil {
		return ""
	}
	return *p.WalletAddress
}
