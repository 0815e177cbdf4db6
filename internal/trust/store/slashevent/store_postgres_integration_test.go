//go:build integration

package slashevent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustgraph/internal/trust/models"
	"trustgraph/internal/trust/store/bond"
	"trustgraph/internal/trust/store/identity"
	"trustgraph/internal/trust/store/slashevent"
	"trustgraph/pkg/apperrors"
	"trustgraph/pkg/testutil/containers"
)

type PostgresSlashEventStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *slashevent.PostgresStore
	bondID   int64
	ctx      context.Context
}

func TestPostgresSlashEventStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSlashEventStoreSuite))
}

func (s *PostgresSlashEventStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = slashevent.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresSlashEventStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx))

	_, err := identity.NewPostgres(s.postgres.DB).Create(s.ctx, models.CreateIdentityInput{Address: "0xabc"})
	s.Require().NoError(err)

	b, err := bond.NewPostgres(s.postgres.DB).Create(s.ctx, models.CreateBondInput{
		IdentityAddress: "0xabc",
		Amount:          "100",
		DurationDays:    30,
	})
	s.Require().NoError(err)
	s.bondID = b.ID
}

func (s *PostgresSlashEventStoreSuite) TestRoundTrip() {
	created, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID:      s.bondID,
		SlashAmount: "2.5000000",
		Reason:      "downtime",
	})
	s.Require().NoError(err)
	s.Equal("2.5", created.SlashAmount)
	s.Equal("downtime", created.Reason)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("2.5", found.SlashAmount)
}

func (s *PostgresSlashEventStoreSuite) TestTotalSlashedForBond() {
	for _, amount := range []string{"2.5", "4"} {
		_, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
			BondID:      s.bondID,
			SlashAmount: amount,
			Reason:      "violation",
		})
		s.Require().NoError(err)
	}

	total, err := s.store.TotalSlashedForBond(s.ctx, s.bondID)
	s.Require().NoError(err)
	s.Equal("6.5", total)
}

func (s *PostgresSlashEventStoreSuite) TestTotalSlashedEmptyIsZero() {
	total, err := s.store.TotalSlashedForBond(s.ctx, s.bondID)
	s.Require().NoError(err)
	s.Equal("0", total)
}

func (s *PostgresSlashEventStoreSuite) TestEmptyReasonCheckViolation() {
	_, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID:      s.bondID,
		SlashAmount: "1",
		Reason:      "   ",
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *PostgresSlashEventStoreSuite) TestUnknownBondForeignKey() {
	_, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID:      9999,
		SlashAmount: "1",
		Reason:      "downtime",
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeForeignKeyViolation, apperrors.CodeOf(err))
}

func (s *PostgresSlashEventStoreSuite) TestListByBondNewestFirst() {
	first, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID: s.bondID, SlashAmount: "1", Reason: "a",
	})
	s.Require().NoError(err)
	second, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID: s.bondID, SlashAmount: "2", Reason: "b",
	})
	s.Require().NoError(err)

	events, err := s.store.ListByBond(s.ctx, s.bondID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(second.ID, events[0].ID)
	s.Equal(first.ID, events[1].ID)
}

func (s *PostgresSlashEventStoreSuite) TestDeleteIdempotent() {
	created, err := s.store.Create(s.ctx, models.CreateSlashEventInput{
		BondID: s.bondID, SlashAmount: "1", Reason: "downtime",
	})
	s.Require().NoError(err)

	removed, err := s.store.Delete(s.ctx, created.ID)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.store.Delete(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(removed)
}
