//go:build integration

package scorehistory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgraph/internal/trust/models"
	"trustgraph/internal/trust/store/identity"
	"trustgraph/internal/trust/store/scorehistory"
	"trustgraph/pkg/apperrors"
	"trustgraph/pkg/testutil/containers"
)

type PostgresScoreHistoryStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *scorehistory.PostgresStore
	ctx      context.Context
}

func TestPostgresScoreHistoryStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresScoreHistoryStoreSuite))
}

func (s *PostgresScoreHistoryStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = scorehistory.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresScoreHistoryStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx))
	_, err := identity.NewPostgres(s.postgres.DB).Create(s.ctx, models.CreateIdentityInput{Address: "0xabc"})
	s.Require().NoError(err)
}

func (s *PostgresScoreHistoryStoreSuite) TestComputedAtDefaultsToNow() {
	before := time.Now().Add(-time.Minute)

	created, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           72,
		Source:          models.ScoreSourceManual,
	})
	s.Require().NoError(err)
	s.True(created.ComputedAt.After(before))
}

func (s *PostgresScoreHistoryStoreSuite) TestExplicitComputedAt() {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	created, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           72,
		Source:          models.ScoreSourceBond,
		ComputedAt:      &at,
	})
	s.Require().NoError(err)
	s.WithinDuration(at, created.ComputedAt, 0)
}

func (s *PostgresScoreHistoryStoreSuite) TestListOrderedByComputedAtDesc() {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc", Score: 60, Source: models.ScoreSourceManual, ComputedAt: &older,
	})
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc", Score: 70, Source: models.ScoreSourceBond, ComputedAt: &newer,
	})
	s.Require().NoError(err)

	entries, err := s.store.ListByIdentity(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(70, entries[0].Score)
	s.Equal(60, entries[1].Score)
}

func (s *PostgresScoreHistoryStoreSuite) TestScoreRangeCheckViolation() {
	_, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           101,
		Source:          models.ScoreSourceManual,
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *PostgresScoreHistoryStoreSuite) TestUnknownIdentityForeignKey() {
	_, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xghost",
		Score:           50,
		Source:          models.ScoreSourceManual,
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeForeignKeyViolation, apperrors.CodeOf(err))
}

func (s *PostgresScoreHistoryStoreSuite) TestDeleteIdempotent() {
	created, err := s.store.Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           50,
		Source:          models.ScoreSourceManual,
	})
	s.Require().NoError(err)

	removed, err := s.store.Delete(s.ctx, created.ID)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.store.Delete(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(removed)
}
