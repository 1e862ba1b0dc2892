// Package types provides common type definitions for the time-economy API.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SocialID is the externally issued numeric account id of a social identity.
// The system never creates one; it only observes it on inbound requests.
type SocialID int64

// IsValid reports whether the id is a positive integer.
func (id SocialID) IsValid() bool {
	return id > 0
}

// String renders the id in base 10.
func (id SocialID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts both a JSON number and a numeric JSON string.
// Fractional, exponent and non-numeric values are rejected.
func (id *SocialID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid social id: %w", err)
		}
		raw = strings.TrimSpace(unquoted)
	}

	parsed, err := ParseSocialID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON renders the id as a JSON number.
func (id SocialID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(id))
}

// ParseSocialID parses a decimal social id. An empty string yields zero and no error;
// callers decide whether an absent id is acceptable.
func ParseSocialID(raw string) (SocialID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid social id %q", raw)
	}
	return SocialID(value), nil
}

// Capability is the authority a resolved identity claim carries.
type Capability string

const (
	// CapabilityNone is carried by rejected claims
	CapabilityNone Capability = "none"
	// CapabilityRead is carried by header-trust-only claims
	CapabilityRead Capability = "read"
	// CapabilityWrite is carried by signature-verified claims
	CapabilityWrite Capability = "write"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
