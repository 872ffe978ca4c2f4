// SPDX-License-Identifier: Apache-2.0

// Package vault defines the secret model for provider API keys and the
// masking applied before a key leaves the process.
package vault

import (
	"strings"
	"time"
)

// Secret is a stored provider credential. Value holds the plaintext key and
// must never be serialized directly; use Masked for API responses.
type Secret struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Value     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaskedSecret is the API-safe view of a Secret.
type MaskedSecret struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	MaskedKey string    `json:"masked_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Masked returns the secret with its key masked.
func (s Secret) Masked() MaskedSecret {
	return MaskedSecret{
		ID:        s.ID,
		Name:      s.Name,
		Provider:  s.Provider,
		MaskedKey: MaskKey(s.Value),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// maskVisiblePrefix and maskVisibleSuffix control how much of a key stays
// readable. Keys at or below the combined length are fully elided.
const (
	maskVisiblePrefix = 3
	maskVisibleSuffix = 4
)

// MaskKey renders an API key for display: the first 3 and last 4 characters
// with the middle replaced by four dots. Keys too short to keep both ends
// readable are fully elided to the key's length.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= maskVisiblePrefix+maskVisibleSuffix {
		return strings.Repeat("*", len(key))
	}
	return key[:maskVisiblePrefix] + "...." + key[len(key)-maskVisibleSuffix:]
}
