package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"trustgraph/pkg/apperrors"
)

// Tier is a subscription level governing rate limit and endpoint access.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// IsValid checks if the tier is one of the supported enum values.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// String returns the string representation.
func (t Tier) String() string {
	return string(t)
}

// APIKeyRecord describes an authenticated caller. Records live in the
// process-wide registry; expiry is checked by callers, never auto-purged.
type APIKeyRecord struct {
	Key           string     `json:"key"`
	Tier          Tier       `json:"tier"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AdminOverride bool       `json:"admin_override"`
}

// Expired reports whether the record has passed its expiry instant.
// Records without an expiry never expire.
func (r *APIKeyRecord) Expired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return !now.Before(*r.ExpiresAt)
}

// QuotaDecision is the outcome of a quota check. Decisions are values, never
// errors; Remaining is clamped at zero.
type QuotaDecision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// RegisterKeyInput carries the fields for registering an API key. An empty
// Key asks the service to generate one.
type RegisterKeyInput struct {
	Key           string     `json:"key,omitempty"`
	Tier          Tier       `json:"tier"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AdminOverride bool       `json:"admin_override"`
}

// Validate enforces registration invariants.
func (in RegisterKeyInput) Validate() error {
	if !in.Tier.IsValid() {
		return apperrors.New(apperrors.CodeInvalidInput, "invalid tier")
	}
	if in.Key != "" && strings.TrimSpace(in.Key) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "key cannot be blank")
	}
	return nil
}

// GenerateKey produces a fresh API key. The tg_ prefix makes keys easy to
// spot in logs and support tickets.
func GenerateKey() string {
	return "tg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
