package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgraph/internal/ratelimit/config"
	"trustgraph/internal/ratelimit/models"
	"trustgraph/internal/ratelimit/service"
	"trustgraph/internal/ratelimit/store/keys"
	"trustgraph/internal/ratelimit/store/window"
)

type MiddlewareSuite struct {
	suite.Suite
	service    *service.Service
	middleware *Middleware
	now        time.Time
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.now = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	svc, err := service.New(
		keys.New(),
		window.NewInMemory(window.WithNow(clock)),
		config.DefaultConfig(),
		service.WithNow(clock),
	)
	s.Require().NoError(err)
	s.service = svc
	s.middleware = New(svc, slog.New(slog.DiscardHandler), WithNow(clock))
}

func (s *MiddlewareSuite) register(tier models.Tier, adminOverride bool) *models.APIKeyRecord {
	record, err := s.service.RegisterKey(context.Background(), models.RegisterKeyInput{
		Tier:          tier,
		AdminOverride: adminOverride,
	})
	s.Require().NoError(err)
	return record
}

func (s *MiddlewareSuite) protected() http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s.middleware.Authenticate(s.middleware.Quota(inner))
}

func (s *MiddlewareSuite) request(handler http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) TestMissingKey() {
	rec := s.request(s.protected(), "/api/trust", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *MiddlewareSuite) TestUnknownKey() {
	rec := s.request(s.protected(), "/api/trust", "tg_nobody")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *MiddlewareSuite) TestExpiredKey() {
	expiry := s.now.Add(time.Hour)
	record, err := s.service.RegisterKey(context.Background(), models.RegisterKeyInput{
		Tier:      models.TierFree,
		ExpiresAt: &expiry,
	})
	s.Require().NoError(err)

	rec := s.request(s.protected(), "/api/trust", record.Key)
	s.Equal(http.StatusOK, rec.Code)

	s.now = s.now.Add(2 * time.Hour)
	rec = s.request(s.protected(), "/api/trust", record.Key)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *MiddlewareSuite) TestEndpointDenied() {
	record := s.register(models.TierFree, false)

	rec := s.request(s.protected(), "/api/bond", record.Key)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *MiddlewareSuite) TestRateLimitHeadersOnSuccess() {
	record := s.register(models.TierFree, false)

	rec := s.request(s.protected(), "/api/trust", record.Key)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("10", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("9", rec.Header().Get("X-RateLimit-Remaining"))
}

func (s *MiddlewareSuite) TestQuotaExceeded() {
	record := s.register(models.TierFree, false)
	handler := s.protected()

	for range 10 {
		rec := s.request(handler, "/api/trust", record.Key)
		s.Equal(http.StatusOK, rec.Code)
	}

	rec := s.request(handler, "/api/trust", record.Key)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("60", rec.Header().Get("Retry-After"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
}

// Endpoint-denied requests must not burn quota.
func (s *MiddlewareSuite) TestDeniedEndpointConsumesNoQuota() {
	record := s.register(models.TierFree, false)
	handler := s.protected()

	for range 5 {
		rec := s.request(handler, "/api/bond", record.Key)
		s.Equal(http.StatusForbidden, rec.Code)
	}

	rec := s.request(handler, "/api/trust", record.Key)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("9", rec.Header().Get("X-RateLimit-Remaining"))
}

func (s *MiddlewareSuite) TestAuthenticateScoped() {
	free := s.register(models.TierFree, false)
	enterprise := s.register(models.TierEnterprise, false)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := s.middleware.AuthenticateScoped("/api/admin")(inner)

	rec := s.request(handler, "/elsewhere", free.Key)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(handler, "/elsewhere", enterprise.Key)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *MiddlewareSuite) TestRequireAdmin() {
	plain := s.register(models.TierEnterprise, false)
	admin := s.register(models.TierEnterprise, true)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := s.middleware.Authenticate(s.middleware.RequireAdmin(inner))

	rec := s.request(handler, "/api/admin/keys", plain.Key)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(handler, "/api/admin/keys", admin.Key)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *MiddlewareSuite) TestRecordTravelsInContext() {
	record := s.register(models.TierPro, false)

	var seen *models.APIKeyRecord
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RecordFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := s.request(s.middleware.Authenticate(inner), "/api/trust", record.Key)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(seen)
	s.Equal(record.Key, seen.Key)
	s.Equal(models.TierPro, seen.Tier)
}
