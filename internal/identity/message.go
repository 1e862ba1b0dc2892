package identity

import (
	"strings"
	"time"

	"github.com/time-economy/internal/types"
)

// signedFields are the statements a signed message may carry. Only the
// fields present in the message are enforced.
type signedFields struct {
	SocialID       string
	Nonce          string
	ExpirationTime *time.Time
}

// parseSignedMessage reads "Key: value" lines in the sign-in message format
// wallets display. Unknown lines are ignored.
func parseSignedMessage(message string) signedFields {
	var fields signedFields

	for _, line := range strings.Split(message, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "social id", "fid":
			fields.SocialID = value
		case "nonce":
			fields.Nonce = value
		case "expiration time":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				fields.ExpirationTime = &ts
			}
		case "- farcaster":
			// "- farcaster://fid/42" resource lines
			if id, found := strings.CutPrefix(value, "//fid/"); found {
				fields.SocialID = id
			}
		}
	}

	return fields
}

// BuildMessage renders a sign-in message for the given identity and nonce.
// Clients may use any wording as long as the statement lines are present.
func BuildMessage(domain string, socialID types.SocialID, address, nonce string, expires time.Time) string {
	var sb strings.Builder
	sb.WriteString(domain)
	sb.WriteString(" wants you to sign in with your wallet:\n")
	sb.WriteString(address)
	sb.WriteString("\n\nSocial ID: ")
	sb.WriteString(socialID.String())
	if nonce != "" {
		sb.WriteString("\nNonce: ")
		sb.WriteString(nonce)
	}
	if !expires.IsZero() {
		sb.WriteString("\nExpiration Time: ")
		sb.WriteString(expires.UTC().Format(time.RFC3339))
	}
	return sb.String()
}
