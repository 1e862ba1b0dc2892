package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignedMessage(t *testing.T) {
	msg := `example.com wants you to sign in with your Ethereum account:
0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4

URI: https://example.com/login
Nonce: abc123
Issued At: 2026-10-16T10:00:00Z
Expiration Time: 2026-10-16T11:00:00Z
Resources:
- farcaster://fid/42`

	fields := parseSignedMessage(msg)
	assert.Equal(t, "42", fields.SocialID)
	assert.Equal(t, "abc123", fields.Nonce)
	require.NotNil(t, fields.ExpirationTime)
	assert.Equal(t, time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC), fields.ExpirationTime.UTC())
}

func TestParseSignedMessage_Plain(t *testing.T) {
	fields := parseSignedMessage("need help moving")
	assert.Empty(t, fields.SocialID)
	assert.Empty(t, fields.Nonce)
	assert.Nil(t, fields.ExpirationTime)
}

func TestBuildMessage_RoundTrip(t *testing.T) {
	expires := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	msg := BuildMessage("time-economy", 42, "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", "n-9", expires)

	fields := parseSignedMessage(msg)
	assert.Equal(t, "42", fields.SocialID)
	assert.Equal(t, "n-9", fields.Nonce)
	require.NotNil(t, fields.ExpirationTime)
	assert.True(t, expires.Equal(*fields.ExpirationTime))
}
