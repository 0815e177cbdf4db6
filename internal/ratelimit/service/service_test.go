package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgraph/internal/ratelimit/config"
	"trustgraph/internal/ratelimit/models"
	"trustgraph/internal/ratelimit/store/keys"
	"trustgraph/internal/ratelimit/store/window"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	svc, err := New(
		keys.New(),
		window.NewInMemory(window.WithNow(clock)),
		config.DefaultConfig(),
		WithNow(clock),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = context.Background()
}

func (s *ServiceSuite) register(tier models.Tier, adminOverride bool) *models.APIKeyRecord {
	record, err := s.service.RegisterKey(s.ctx, models.RegisterKeyInput{
		Tier:          tier,
		AdminOverride: adminOverride,
	})
	s.Require().NoError(err)
	return record
}

func (s *ServiceSuite) TestRegisterKey() {
	s.Run("generates a key when none is supplied", func() {
		record := s.register(models.TierFree, false)
		s.Contains(record.Key, "tg_")
		s.Equal(models.TierFree, record.Tier)
		s.Equal(s.now, record.CreatedAt)
	})

	s.Run("keeps a caller-supplied key", func() {
		record, err := s.service.RegisterKey(s.ctx, models.RegisterKeyInput{
			Key:  "tg_fixed",
			Tier: models.TierPro,
		})
		s.Require().NoError(err)
		s.Equal("tg_fixed", record.Key)
	})

	s.Run("rejects an invalid tier", func() {
		_, err := s.service.RegisterKey(s.ctx, models.RegisterKeyInput{Tier: "GOLD"})
		s.Error(err)
	})
}

func (s *ServiceSuite) TestGetKey() {
	record := s.register(models.TierFree, false)

	found, err := s.service.GetKey(s.ctx, record.Key)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(record.Key, found.Key)

	missing, err := s.service.GetKey(s.ctx, "tg_unknown")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *ServiceSuite) TestRevokeKey() {
	record := s.register(models.TierFree, false)

	removed, err := s.service.RevokeKey(s.ctx, record.Key)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.service.RevokeKey(s.ctx, record.Key)
	s.Require().NoError(err)
	s.False(removed)
}

func (s *ServiceSuite) TestExpiredRecordIsReported() {
	expiry := s.now.Add(time.Hour)
	record, err := s.service.RegisterKey(s.ctx, models.RegisterKeyInput{
		Tier:      models.TierFree,
		ExpiresAt: &expiry,
	})
	s.Require().NoError(err)

	s.False(record.Expired(s.now))
	s.False(record.Expired(expiry.Add(-time.Second)))
	s.True(record.Expired(expiry))
	s.True(record.Expired(expiry.Add(time.Hour)))
}

func (s *ServiceSuite) TestQuotaExhaustion() {
	record := s.register(models.TierFree, false)

	for i := 1; i <= 10; i++ {
		decision := s.service.CheckAndIncrementQuota(s.ctx, record)
		s.True(decision.Allowed, "request %d should be allowed", i)
		s.Equal(10-i, decision.Remaining)
	}

	decision := s.service.CheckAndIncrementQuota(s.ctx, record)
	s.False(decision.Allowed)
	s.Equal(0, decision.Remaining)

	// A fresh budget after the window boundary.
	s.now = s.now.Add(61 * time.Second)
	decision = s.service.CheckAndIncrementQuota(s.ctx, record)
	s.True(decision.Allowed)
	s.Equal(9, decision.Remaining)
}

func (s *ServiceSuite) TestAdminOverrideBypassesLedger() {
	record := s.register(models.TierFree, true)

	for range 50 {
		decision := s.service.CheckAndIncrementQuota(s.ctx, record)
		s.True(decision.Allowed)
		s.Equal(unlimitedRemaining, decision.Remaining)
	}

	// The override never touched the ledger: a plain key with the same
	// budget still has its full allowance.
	plain := s.register(models.TierFree, false)
	decision := s.service.CheckAndIncrementQuota(s.ctx, plain)
	s.True(decision.Allowed)
	s.Equal(9, decision.Remaining)
}

func (s *ServiceSuite) TestNilRecordIsDenied() {
	decision := s.service.CheckAndIncrementQuota(s.ctx, nil)
	s.False(decision.Allowed)
	s.Equal(0, decision.Remaining)
}

func (s *ServiceSuite) TestIsEndpointAllowed() {
	free := s.register(models.TierFree, false)
	pro := s.register(models.TierPro, false)
	enterprise := s.register(models.TierEnterprise, false)

	s.Run("free tier", func() {
		s.True(s.service.IsEndpointAllowed(free, "/api/trust"))
		s.True(s.service.IsEndpointAllowed(free, "/api/trust/identities"))
		s.True(s.service.IsEndpointAllowed(free, "/api/health"))
		s.False(s.service.IsEndpointAllowed(free, "/api/bond"))
		s.False(s.service.IsEndpointAllowed(free, "/api/admin/keys"))
	})

	s.Run("pro tier", func() {
		s.True(s.service.IsEndpointAllowed(pro, "/api/bond/7/slash"))
		s.False(s.service.IsEndpointAllowed(pro, "/api/admin/keys"))
	})

	s.Run("enterprise wildcard", func() {
		s.True(s.service.IsEndpointAllowed(enterprise, "/api/admin/keys"))
		s.True(s.service.IsEndpointAllowed(enterprise, "/anything/at/all"))
	})

	s.Run("matching is a raw prefix", func() {
		s.True(s.service.IsEndpointAllowed(free, "/api/trustworthy"))
	})

	s.Run("nil record is denied", func() {
		s.False(s.service.IsEndpointAllowed(nil, "/api/trust"))
	})
}

func (s *ServiceSuite) TestUnknownTierFallsBackToFree() {
	record := &models.APIKeyRecord{Key: "tg_odd", Tier: "GOLD"}

	s.True(s.service.IsEndpointAllowed(record, "/api/trust"))
	s.False(s.service.IsEndpointAllowed(record, "/api/bond"))
	s.Equal(10, s.service.LimitFor(record.Tier))
}

func (s *ServiceSuite) TestWindowAndLimitAccessors() {
	s.Equal(60*time.Second, s.service.WindowFor(models.TierFree))
	s.Equal(10, s.service.LimitFor(models.TierFree))
	s.Equal(100, s.service.LimitFor(models.TierPro))
	s.Equal(1000, s.service.LimitFor(models.TierEnterprise))
}

func (s *ServiceSuite) TestReset() {
	record := s.register(models.TierFree, false)
	for range 10 {
		s.service.CheckAndIncrementQuota(s.ctx, record)
	}

	s.Require().NoError(s.service.Reset(s.ctx))

	// Both the registry and the ledger are gone.
	found, err := s.service.GetKey(s.ctx, record.Key)
	s.Require().NoError(err)
	s.Nil(found)

	decision := s.service.CheckAndIncrementQuota(s.ctx, record)
	s.True(decision.Allowed)
	s.Equal(9, decision.Remaining)
}
