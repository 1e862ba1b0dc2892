package identity

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/signature"
	"github.com/time-economy/internal/types"
)

type fakeProfiles struct {
	bound map[types.SocialID]string
	err   error
}

func (f *fakeProfiles) BoundWallet(_ context.Context, id types.SocialID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.bound[id], nil
}

type fakeNonces struct {
	mu     sync.Mutex
	issued map[string]bool
}

func (f *fakeNonces) Consume(_ context.Context, nonce string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.issued[nonce] {
		return false, nil
	}
	delete(f.issued, nonce)
	return true, nil
}

type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w testWallet) sign(t *testing.T, msg string) string {
	t.Helper()
	sig, err := signature.Sign(msg, w.key)
	require.NoError(t, err)
	return sig
}

func newTestResolver(t *testing.T, profiles *fakeProfiles, cfg ResolverConfig) *Resolver {
	t.Helper()
	cfg.Profiles = profiles
	r, err := NewResolver(&cfg)
	require.NoError(t, err)
	return r
}

func signedRequest(t *testing.T, w testWallet, id types.SocialID, msg string) *Request {
	return &Request{
		HeaderSocialID: id.String(),
		BodySocialID:   id,
		WalletAddress:  w.address,
		Message:        msg,
		Signature:      w.sign(t, msg),
		Mode:           ModeMutation,
	}
}

func freshMessage(w testWallet, id types.SocialID) string {
	return BuildMessage("time-economy", id, w.address, "", time.Now().Add(time.Hour))
}

func TestNewResolver(t *testing.T) {
	_, err := NewResolver(nil)
	assert.Error(t, err)

	_, err = NewResolver(&ResolverConfig{})
	assert.ErrorContains(t, err, "profile reader is required")

	_, err = NewResolver(&ResolverConfig{Profiles: &fakeProfiles{}, RequireNonce: true})
	assert.ErrorContains(t, err, "nonce store is required")
}

func TestResolve_VerifiedClaim(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	claim, err := r.Resolve(context.Background(), signedRequest(t, w, 42, freshMessage(w, 42)))
	require.NoError(t, err)

	assert.True(t, claim.Verified)
	assert.True(t, claim.CanWrite())
	assert.Equal(t, types.SocialID(42), claim.SocialID)
	assert.Equal(t, strings.ToLower(w.address), claim.WalletAddress)
}

func TestResolve_BodySocialIDValidation(t *testing.T) {
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	for _, id := range []types.SocialID{0, -1} {
		claim, err := r.Resolve(context.Background(), &Request{BodySocialID: id, Mode: ModeRead})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		assert.False(t, claim.Verified)
		assert.Equal(t, apperrors.CodeValidation, claim.Reason)
	}
}

func TestResolve_HeaderMismatch(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	for _, header := range []string{"43", "abc", "42.0"} {
		req := signedRequest(t, w, 42, "sign in")
		req.HeaderSocialID = header

		claim, err := r.Resolve(context.Background(), req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeIdentityMismatch), header)
		assert.False(t, claim.Verified)
	}
}

func TestResolve_RequireIdentityHeader(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{RequireIdentityHeader: true})

	req := signedRequest(t, w, 42, "sign in")
	req.HeaderSocialID = ""

	_, err := r.Resolve(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIdentityMismatch))

	req.Mode = ModeRead
	_, err = r.Resolve(context.Background(), req)
	assert.NoError(t, err)
}

func TestResolve_SignatureInvalid(t *testing.T) {
	w := newTestWallet(t)
	other := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	tests := []struct {
		name   string
		mutate func(req *Request)
	}{
		{"signed by another key", func(req *Request) { req.Signature = other.sign(t, req.Message) }},
		{"message altered", func(req *Request) { req.Message += "!" }},
		{"garbage signature", func(req *Request) { req.Signature = "0xdeadbeef" }},
		{"message without signature", func(req *Request) { req.Signature = "" }},
		{"signature without wallet", func(req *Request) { req.WalletAddress = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signedRequest(t, w, 42, "sign in")
			tt.mutate(req)

			claim, err := r.Resolve(context.Background(), req)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeSignatureInvalid), "got %v", err)
			assert.False(t, claim.Verified)
		})
	}
}

func TestResolve_HeaderTrustOnly(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	req := &Request{HeaderSocialID: "42", BodySocialID: 42, WalletAddress: w.address, Mode: ModeRead}
	claim, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, claim.Verified)
	assert.Equal(t, types.CapabilityRead, claim.Capability)
	assert.False(t, claim.CanWrite())

	req.Mode = ModeMutation
	claim, err = r.Resolve(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSignatureRequired))
	assert.False(t, claim.Verified)
}

func TestResolve_InvalidWalletFormat(t *testing.T) {
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	_, err := r.Resolve(context.Background(), &Request{BodySocialID: 42, WalletAddress: "0x1234", Mode: ModeRead})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestResolve_RebindRequiresProof(t *testing.T) {
	bound := newTestWallet(t)
	next := newTestWallet(t)
	profiles := &fakeProfiles{bound: map[types.SocialID]string{42: strings.ToLower(bound.address)}}
	r := newTestResolver(t, profiles, ResolverConfig{})

	// No signature naming a new wallet
	_, err := r.Resolve(context.Background(), &Request{BodySocialID: 42, WalletAddress: next.address, Mode: ModeMutation})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRebindDenied))

	// Signature by the old wallet does not prove the new one
	req := signedRequest(t, next, 42, freshMessage(next, 42))
	req.Signature = bound.sign(t, req.Message)
	_, err = r.Resolve(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRebindDenied))

	// Fresh signature by the new wallet
	claim, err := r.Resolve(context.Background(), signedRequest(t, next, 42, freshMessage(next, 42)))
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(next.address), claim.WalletAddress)

	// A fresh signature without the platform header cannot rebind
	noHeader := signedRequest(t, next, 42, freshMessage(next, 42))
	noHeader.HeaderSocialID = ""
	_, err = r.Resolve(context.Background(), noHeader)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRebindDenied))

	// Same wallet in different case is not a rebind
	upper := signedRequest(t, bound, 42, freshMessage(bound, 42))
	upper.WalletAddress = "0x" + strings.ToUpper(bound.address[2:])
	_, err = r.Resolve(context.Background(), upper)
	assert.NoError(t, err)
}

func TestResolve_BoundWalletLookupFailure(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{err: errors.New("connection reset")}, ResolverConfig{})

	_, err := r.Resolve(context.Background(), signedRequest(t, w, 42, freshMessage(w, 42)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreError))
}

func TestResolve_SignedSocialIDMustMatch(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	_, err := r.Resolve(context.Background(), signedRequest(t, w, 42, "sign in\nSocial ID: 43"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIdentityMismatch))

	_, err = r.Resolve(context.Background(), signedRequest(t, w, 42, "sign in\n- farcaster://fid/43"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIdentityMismatch))
}

func TestResolve_ExpiredMessage(t *testing.T) {
	w := newTestWallet(t)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{Now: func() time.Time { return now }})

	expired := BuildMessage("time-economy", 42, w.address, "", now.Add(-time.Second))
	_, err := r.Resolve(context.Background(), signedRequest(t, w, 42, expired))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSignatureInvalid))

	fresh := BuildMessage("time-economy", 42, w.address, "", now.Add(time.Minute))
	_, err = r.Resolve(context.Background(), signedRequest(t, w, 42, fresh))
	assert.NoError(t, err)
}

func TestResolve_NonceIsSingleUse(t *testing.T) {
	w := newTestWallet(t)
	nonces := &fakeNonces{issued: map[string]bool{"n-1": true}}
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{Nonces: nonces, RequireNonce: true})

	msg := BuildMessage("time-economy", 42, w.address, "n-1", time.Time{})
	req := signedRequest(t, w, 42, msg)

	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNonceInvalid), "replay must be rejected")

	_, err = r.Resolve(context.Background(), signedRequest(t, w, 42, freshMessage(w, 42)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNonceInvalid))
}

func TestResolve_MutationMessageMustNameIdentity(t *testing.T) {
	w := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	for _, msg := range []string{"hello", "Expiration Time: " + time.Now().Add(time.Hour).UTC().Format(time.RFC3339)} {
		req := signedRequest(t, w, 42, msg)
		req.HeaderSocialID = ""

		claim, err := r.Resolve(context.Background(), req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeIdentityMismatch), msg)
		assert.False(t, claim.Verified)
	}

	// Reads do not need a bound message
	req := signedRequest(t, w, 42, "hello")
	req.Mode = ModeRead
	_, err := r.Resolve(context.Background(), req)
	assert.NoError(t, err)
}

func TestResolve_MutationMessageMustBeTimeBound(t *testing.T) {
	w := newTestWallet(t)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	nonces := &fakeNonces{issued: map[string]bool{"n-7": true}}

	tests := []struct {
		name   string
		nonces NonceConsumer
		msg    string
		code   string
	}{
		{"no expiry and no nonce", nil, BuildMessage("time-economy", 42, w.address, "", time.Time{}), apperrors.CodeNonceInvalid},
		{"nonce without a nonce store", nil, BuildMessage("time-economy", 42, w.address, "n-7", time.Time{}), apperrors.CodeNonceInvalid},
		{"expiry too far ahead", nil, BuildMessage("time-economy", 42, w.address, "", now.Add(MaxMessageLifetime+time.Minute)), apperrors.CodeSignatureInvalid},
		{"expiry within lifetime", nil, BuildMessage("time-economy", 42, w.address, "", now.Add(MaxMessageLifetime)), ""},
		{"burnable nonce", nonces, BuildMessage("time-economy", 42, w.address, "n-7", time.Time{}), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{Nonces: tt.nonces, Now: func() time.Time { return now }})

			claim, err := r.Resolve(context.Background(), signedRequest(t, w, 42, tt.msg))
			if tt.code == "" {
				require.NoError(t, err)
				assert.True(t, claim.CanWrite())
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.False(t, claim.Verified)
		})
	}
}

func TestResolve_ReplayedMessageRejected(t *testing.T) {
	w := newTestWallet(t)
	nonces := &fakeNonces{issued: map[string]bool{"n-2": true}}
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{Nonces: nonces})

	req := signedRequest(t, w, 42, BuildMessage("time-economy", 42, w.address, "n-2", time.Time{}))
	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		claim, err := r.Resolve(context.Background(), req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNonceInvalid))
		assert.False(t, claim.Verified)
	}
}

func TestResolve_ForeignWalletCannotTakeOverBoundIdentity(t *testing.T) {
	owner := newTestWallet(t)
	intruder := newTestWallet(t)
	profiles := &fakeProfiles{bound: map[types.SocialID]string{42: strings.ToLower(owner.address)}}
	r := newTestResolver(t, profiles, ResolverConfig{})

	for _, msg := range []string{"hello", freshMessage(intruder, 42)} {
		req := signedRequest(t, intruder, 42, msg)
		req.HeaderSocialID = ""

		claim, err := r.Resolve(context.Background(), req)
		require.Error(t, err, msg)
		assert.False(t, claim.CanWrite())
	}
}

// Property: whenever the signature does not come from the claimed wallet the
// claim is unverified, whatever the header and body say.
func TestResolveNoImpersonationProperty(t *testing.T) {
	signer := newTestWallet(t)
	victim := newTestWallet(t)
	r := newTestResolver(t, &fakeProfiles{}, ResolverConfig{})

	properties := gopter.NewProperties(nil)

	properties.Property("foreign signature never verifies", prop.ForAll(
		func(id int64, msg string, withHeader bool) bool {
			sig, err := signature.Sign(msg, signer.key)
			if err != nil {
				return false
			}
			req := &Request{
				BodySocialID:  types.SocialID(id),
				WalletAddress: victim.address,
				Message:       msg,
				Signature:     sig,
				Mode:          ModeMutation,
			}
			if withHeader {
				req.HeaderSocialID = types.SocialID(id).String()
			}
			claim, err := r.Resolve(context.Background(), req)
			return err != nil && !claim.Verified
		},
		gen.Int64Range(1, 1<<40),
		gen.AnyString(),
		gen.Bool(),
	))

	properties.Property("header and body disagreement is a mismatch", prop.ForAll(
		func(body, header int64) bool {
			if body == header {
				return true
			}
			req := signedRequest(t, signer, types.SocialID(body), "sign in")
			req.HeaderSocialID = types.SocialID(header).String()
			_, err := r.Resolve(context.Background(), req)
			return apperrors.HasCode(err, apperrors.CodeIdentityMismatch)
		},
		gen.Int64Range(1, 1<<40),
		gen.Int64Range(1, 1<<40),
	))

	properties.TestingRun(t)
}
