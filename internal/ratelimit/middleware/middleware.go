// Package middleware translates quota and tier decisions into HTTP
// rejections. The service itself never errors; everything user-visible
// happens here.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trustgraph/internal/ratelimit/models"
	"trustgraph/pkg/platform/httputil"
)

const apiKeyHeader = "X-API-Key"

// Limiter is the slice of the quota service the middleware needs.
type Limiter interface {
	GetKey(ctx context.Context, key string) (*models.APIKeyRecord, error)
	IsEndpointAllowed(record *models.APIKeyRecord, path string) bool
	CheckAndIncrementQuota(ctx context.Context, record *models.APIKeyRecord) models.QuotaDecision
	WindowFor(tier models.Tier) time.Duration
	LimitFor(tier models.Tier) int
}

type contextKeyRecord struct{}

// RecordFromContext retrieves the authenticated API-key record, nil when the
// request did not pass Authenticate.
func RecordFromContext(ctx context.Context) *models.APIKeyRecord {
	record, _ := ctx.Value(contextKeyRecord{}).(*models.APIKeyRecord)
	return record
}

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Middleware)

// WithNow injects the clock used for expiry checks.
func WithNow(now func() time.Time) Option {
	return func(m *Middleware) {
		m.now = now
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate resolves the X-API-Key header against the registry. Missing,
// unknown, and expired keys are rejected with distinct messages; the record
// travels in the request context on success.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate("", next)
}

// AuthenticateScoped behaves like Authenticate and additionally requires the
// caller's tier to allow the given endpoint scope, independent of the request
// path. Use it on route groups mounted away from their canonical prefix.
func (m *Middleware) AuthenticateScoped(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.authenticate(scope, next)
	}
}

func (m *Middleware) authenticate(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeUnauthorized(w, "missing API key")
			return
		}

		record, err := m.limiter.GetKey(ctx, key)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to look up api key", "error", err)
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorBody{Error: "internal"})
			return
		}
		if record == nil {
			writeUnauthorized(w, "unknown API key")
			return
		}
		if record.Expired(m.now()) {
			writeUnauthorized(w, "API key expired")
			return
		}

		if scope != "" && !m.limiter.IsEndpointAllowed(record, scope) {
			writeForbidden(w, record.Tier)
			return
		}

		ctx = context.WithValue(ctx, contextKeyRecord{}, record)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers whose key does not carry the admin override.
// Mount after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record := RecordFromContext(r.Context())
		if record == nil || !record.AdminOverride {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorBody{
				Error:   "forbidden",
				Message: "admin key required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Quota enforces the tier endpoint allow-list and the fixed-window request
// budget. Mount after Authenticate.
func (m *Middleware) Quota(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		record := RecordFromContext(ctx)
		if record == nil {
			writeUnauthorized(w, "missing API key")
			return
		}

		if !m.limiter.IsEndpointAllowed(record, r.URL.Path) {
			writeForbidden(w, record.Tier)
			return
		}

		decision := m.limiter.CheckAndIncrementQuota(ctx, record)
		addRateLimitHeaders(w, m.limiter.LimitFor(record.Tier), decision)

		if !decision.Allowed {
			retryAfter := int(m.limiter.WindowFor(record.Tier).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorBody{
				Error:   "rate_limit_exceeded",
				Message: "Request quota exhausted for this window. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, limit int, decision models.QuotaDecision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorBody{
		Error:   "unauthorized",
		Message: message,
	})
}

func writeForbidden(w http.ResponseWriter, tier models.Tier) {
	httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorBody{
		Error:   "endpoint_not_allowed",
		Message: "The " + tier.String() + " tier does not grant access to this endpoint.",
	})
}
