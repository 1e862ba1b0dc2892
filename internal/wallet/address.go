// Package wallet handles on-chain wallet address text: format checks and the
// lower-case normal form used for every comparison and every stored value.
package wallet

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValid reports whether s is a 0x-prefixed 40 hex character address.
// Mixed case is accepted; checksum casing is not enforced.
func IsValid(s string) bool {
	return addressPattern.MatchString(s)
}

// Normalize trims s, checks its format and returns the lower-case form.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsValid(s) {
		return "", fmt.Errorf("invalid wallet address %q", s)
	}
	return strings.ToLower(s), nil
}

// Equal reports whether a and b name the same account regardless of letter case.
// Malformed input never compares equal.
func Equal(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !IsValid(a) || !IsValid(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// FromCommon renders a go-ethereum address in normal form.
func FromCommon(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
