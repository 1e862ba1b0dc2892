package policy

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/types"
)

const ownerWallet = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func writeClaim(id types.SocialID, addr string) *identity.Claim {
	return &identity.Claim{SocialID: id, WalletAddress: addr, Verified: true, Capability: types.CapabilityWrite}
}

func TestAllowDelete(t *testing.T) {
	guard := NewOwnershipGuard()
	need := &models.Need{ID: "n1", SocialID: 42, WalletAddress: ownerWallet}

	tests := []struct {
		name   string
		target Ownable
		claim  *identity.Claim
		code   string
	}{
		{"owner", need, writeClaim(42, ownerWallet), ""},
		{"owner with upper-case wallet", need, writeClaim(42, "0x"+strings.ToUpper(ownerWallet[2:])), ""},
		{"other identity", need, writeClaim(43, ownerWallet), apperrors.CodeForbidden},
		{"same identity other wallet", need, writeClaim(42, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), apperrors.CodeForbidden},
		{"missing target", nil, writeClaim(42, ownerWallet), apperrors.CodeNotFound},
		{"missing target other identity", nil, writeClaim(43, ownerWallet), apperrors.CodeNotFound},
		{
			"header-trust-only claim",
			need,
			&identity.Claim{SocialID: 42, WalletAddress: ownerWallet, Capability: types.CapabilityRead},
			apperrors.CodeSignatureRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.AllowDelete(tt.target, tt.claim, "need", "n1")
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestAllowDelete_Profile(t *testing.T) {
	guard := NewOwnershipGuard()
	addr := ownerWallet
	profile := &models.Profile{SocialID: 42, WalletAddress: &addr}

	assert.NoError(t, guard.AllowDelete(profile, writeClaim(42, ownerWallet), "profile", "42"))

	unbound := &models.Profile{SocialID: 42}
	assert.True(t, apperrors.HasCode(guard.AllowDelete(unbound, writeClaim(42, ownerWallet), "profile", "42"), apperrors.CodeForbidden))
}

// Property: stored and claimed wallets that differ only in letter case are the same owner
func TestAllowDeleteCaseInsensitiveProperty(t *testing.T) {
	guard := NewOwnershipGuard()
	properties := gopter.NewProperties(nil)

	properties.Property("re-cased wallet is accepted", prop.ForAll(
		func(digits string, upperStored bool) bool {
			stored := "0x" + strings.ToLower(digits)
			claimed := "0x" + strings.ToUpper(digits)
			if upperStored {
				stored, claimed = claimed, stored
			}
			need := &models.Need{SocialID: 9, WalletAddress: stored}
			return guard.AllowDelete(need, writeClaim(9, claimed), "need", "x") == nil
		},
		gen.RegexMatch("[0-9a-fA-F]{40}"),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
