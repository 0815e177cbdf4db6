package config

import (
	"time"

	"trustgraph/internal/ratelimit/models"
)

// WildcardEndpoint grants access to every path.
const WildcardEndpoint = "*"

// TierLimits fixes the request budget and endpoint allow-list for one tier.
type TierLimits struct {
	// Requests per fixed window.
	Requests int
	// Window duration. Fixed-window: a full budget resets at each boundary.
	Window time.Duration
	// Endpoints are allowed path prefixes, or the wildcard.
	Endpoints []string
}

// Config holds the per-tier quota table.
type Config struct {
	Tiers map[models.Tier]TierLimits
}

// DefaultConfig returns the fixed three-tier table.
func DefaultConfig() *Config {
	return &Config{
		Tiers: map[models.Tier]TierLimits{
			models.TierFree: {
				Requests:  10,
				Window:    60 * time.Second,
				Endpoints: []string{"/api/trust", "/api/health"},
			},
			models.TierPro: {
				Requests:  100,
				Window:    60 * time.Second,
				Endpoints: []string{"/api/trust", "/api/health", "/api/bond"},
			},
			models.TierEnterprise: {
				Requests:  1000,
				Window:    60 * time.Second,
				Endpoints: []string{WildcardEndpoint},
			},
		},
	}
}

// LimitsFor returns the limits for a tier, falling back to FREE for unknown
// tiers so a corrupted record can never grant unlimited access.
func (c *Config) LimitsFor(tier models.Tier) TierLimits {
	if limits, ok := c.Tiers[tier]; ok {
		return limits
	}
	return c.Tiers[models.TierFree]
}
