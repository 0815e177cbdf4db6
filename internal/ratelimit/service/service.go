// Package service implements the quota and tier service: the sole arbiter of
// whether an authenticated caller may execute a given request right now.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"trustgraph/internal/ratelimit/config"
	"trustgraph/internal/ratelimit/metrics"
	"trustgraph/internal/ratelimit/models"
	"trustgraph/internal/ratelimit/ports"
)

// unlimitedRemaining is reported for admin-override keys, which never consume
// or exhaust quota.
const unlimitedRemaining = math.MaxInt32

// Type aliases for shared interfaces.
type (
	KeyStore    = ports.KeyStore
	WindowStore = ports.WindowStore
)

type Service struct {
	keys    KeyStore
	windows WindowStore
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNow injects the clock, used by tests to advance windows.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(keys KeyStore, windows WindowStore, cfg *config.Config, opts ...Option) (*Service, error) {
	if keys == nil {
		return nil, fmt.Errorf("key store is required")
	}
	if windows == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	svc := &Service{
		keys:    keys,
		windows: windows,
		config:  cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// RegisterKey creates or overwrites an API-key record. An empty input key is
// generated. CreatedAt is the registration instant.
func (s *Service) RegisterKey(ctx context.Context, in models.RegisterKeyInput) (*models.APIKeyRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	key := in.Key
	if key == "" {
		key = models.GenerateKey()
	}
	record := &models.APIKeyRecord{
		Key:           key,
		Tier:          in.Tier,
		CreatedAt:     s.now(),
		ExpiresAt:     in.ExpiresAt,
		AdminOverride: in.AdminOverride,
	}
	if err := s.keys.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("register key: %w", err)
	}

	s.logger.InfoContext(ctx, "api key registered",
		"tier", record.Tier,
		"admin_override", record.AdminOverride,
	)
	return record, nil
}

// GetKey returns the record or nil when absent. Expiry is not auto-purged;
// callers check record.Expired against the current time.
func (s *Service) GetKey(ctx context.Context, key string) (*models.APIKeyRecord, error) {
	return s.keys.Get(ctx, key)
}

// RevokeKey removes a record from the registry.
func (s *Service) RevokeKey(ctx context.Context, key string) (bool, error) {
	removed, err := s.keys.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("revoke key: %w", err)
	}
	if removed {
		s.logger.InfoContext(ctx, "api key revoked")
	}
	return removed, nil
}

// IsEndpointAllowed reports whether the record's tier may call the path.
// Matching is a raw string-prefix test: /api/trust also matches
// /api/trustworthy. That mirrors the route table this service fronts; a
// segment-boundary check would reject none of the real routes but changes
// the contract, so the raw match stays.
func (s *Service) IsEndpointAllowed(record *models.APIKeyRecord, path string) bool {
	if record == nil {
		return false
	}
	limits := s.config.LimitsFor(record.Tier)
	for _, prefix := range limits.Endpoints {
		if prefix == config.WildcardEndpoint {
			return true
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if s.metrics != nil {
		s.metrics.RecordEndpointDenial(record.Tier.String())
	}
	return false
}

// CheckAndIncrementQuota decides admission for one request. Every outcome is
// a returned decision, never an error: ledger failures fail open with a log
// line so a degraded counter store cannot take the API down.
func (s *Service) CheckAndIncrementQuota(ctx context.Context, record *models.APIKeyRecord) models.QuotaDecision {
	if record == nil {
		return models.QuotaDecision{Allowed: false, Remaining: 0}
	}

	// Admin keys never consume or exhaust quota; the ledger is untouched.
	if record.AdminOverride {
		return models.QuotaDecision{Allowed: true, Remaining: unlimitedRemaining}
	}

	limits := s.config.LimitsFor(record.Tier)
	decision, err := s.windows.Take(ctx, record.Key, limits.Requests, limits.Window)
	if err != nil {
		s.logger.ErrorContext(ctx, "quota ledger unavailable, failing open",
			"error", err,
			"tier", record.Tier,
		)
		return models.QuotaDecision{Allowed: true, Remaining: limits.Requests}
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(record.Tier.String(), decision.Allowed)
	}
	return decision
}

// WindowFor exposes a tier's window duration so the middleware can set
// Retry-After on rejections.
func (s *Service) WindowFor(tier models.Tier) time.Duration {
	return s.config.LimitsFor(tier).Window
}

// LimitFor exposes a tier's request budget for response headers.
func (s *Service) LimitFor(tier models.Tier) int {
	return s.config.LimitsFor(tier).Requests
}

// Reset clears both the registry and the ledger. Intended for test
// isolation, not production use.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.keys.Reset(ctx); err != nil {
		return fmt.Errorf("reset key store: %w", err)
	}
	if err := s.windows.Reset(ctx); err != nil {
		return fmt.Errorf("reset window store: %w", err)
	}
	return nil
}
