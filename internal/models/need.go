package models

import (
	"time"

	"github.com/time-economy/internal/types"
)

// Need is a listing asking for help in exchange for a token reward.
// Needs are immutable once created; they can only be deleted by their owner.
type Need struct {
	ID            string         `json:"id" db:"id"`
	SocialID      types.SocialID `json:"socialId" db:"social_id"`
	DisplayName   string         `json:"displayName" db:"display_name"`
	Location      string         `json:"location" db:"location"`
	Text          string         `json:"text" db:"text"`
	RewardAmount  string         `json:"price" db:"reward_amount"` // decimal string
	WalletAddress string         `json:"walletAddress" db:"wallet_address"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
}

// OwnerSocialID implements policy.Ownable
func (n *Need) OwnerSocialID() types.SocialID {
	return n.SocialID
}

// OwnerWallet implements policy.Ownable
func (n *Need) OwnerWallet() string {
	return n.WalletAddress
}
