package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgraph/internal/trust/models"
	"trustgraph/pkg/apperrors"
)

type MemoryStoreSuite struct {
	suite.Suite
	db  *DB
	now time.Time
	ctx context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s.db = New(WithNow(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) identity(address string) *models.Identity {
	identity, err := s.db.Identities().Create(s.ctx, models.CreateIdentityInput{Address: address})
	s.Require().NoError(err)
	return identity
}

func (s *MemoryStoreSuite) bond(address, amount string) *models.Bond {
	bond, err := s.db.Bonds().Create(s.ctx, models.CreateBondInput{
		IdentityAddress: address,
		Amount:          amount,
		DurationDays:    30,
	})
	s.Require().NoError(err)
	return bond
}

// --- identities ---

func (s *MemoryStoreSuite) TestIdentityRoundTrip() {
	name := "Alice"
	created, err := s.db.Identities().Create(s.ctx, models.CreateIdentityInput{
		Address:     "0xabc",
		DisplayName: &name,
	})
	s.Require().NoError(err)
	s.Equal("0xabc", created.Address)
	s.Require().NotNil(created.DisplayName)
	s.Equal("Alice", *created.DisplayName)
	s.Equal(s.now, created.CreatedAt)

	found, err := s.db.Identities().FindByAddress(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(created, found)
}

func (s *MemoryStoreSuite) TestIdentityDuplicateAddress() {
	s.identity("0xabc")

	_, err := s.db.Identities().Create(s.ctx, models.CreateIdentityInput{Address: "0xabc"})
	s.Require().Error(err)
	s.Equal(apperrors.CodeDuplicateKey, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestIdentityEmptyAddressRejected() {
	_, err := s.db.Identities().Create(s.ctx, models.CreateIdentityInput{Address: "   "})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestIdentityFindAbsentReturnsNil() {
	found, err := s.db.Identities().FindByAddress(s.ctx, "0xmissing")
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *MemoryStoreSuite) TestIdentityListOldestFirst() {
	s.identity("0xbbb")
	s.now = s.now.Add(time.Minute)
	s.identity("0xaaa")

	identities, err := s.db.Identities().List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(identities, 2)
	s.Equal("0xbbb", identities[0].Address)
	s.Equal("0xaaa", identities[1].Address)
}

func (s *MemoryStoreSuite) TestIdentityListTiebreakByAddress() {
	s.identity("0xccc")
	s.identity("0xaaa")

	identities, err := s.db.Identities().List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(identities, 2)
	s.Equal("0xaaa", identities[0].Address)
	s.Equal("0xccc", identities[1].Address)
}

func (s *MemoryStoreSuite) TestUpdateDisplayName() {
	s.identity("0xabc")

	name := "Bob"
	updated, err := s.db.Identities().UpdateDisplayName(s.ctx, "0xabc", &name)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Require().NotNil(updated.DisplayName)
	s.Equal("Bob", *updated.DisplayName)

	// Clearing with nil.
	updated, err = s.db.Identities().UpdateDisplayName(s.ctx, "0xabc", nil)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Nil(updated.DisplayName)
}

func (s *MemoryStoreSuite) TestUpdateDisplayNameAbsentReturnsNil() {
	name := "Bob"
	updated, err := s.db.Identities().UpdateDisplayName(s.ctx, "0xmissing", &name)
	s.Require().NoError(err)
	s.Nil(updated)
}

func (s *MemoryStoreSuite) TestIdentityDeleteIdempotent() {
	s.identity("0xabc")

	removed, err := s.db.Identities().Delete(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.db.Identities().Delete(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.False(removed)
}

// --- bonds ---

func (s *MemoryStoreSuite) TestBondDefaults() {
	s.identity("0xabc")

	bond := s.bond("0xabc", "100.5")
	s.Equal(models.BondStatusActive, bond.Status)
	s.Equal("100.5", bond.Amount)
	s.Equal(s.now, bond.StartTime)
	s.Equal(int64(1), bond.ID)
}

func (s *MemoryStoreSuite) TestBondRequiresIdentity() {
	_, err := s.db.Bonds().Create(s.ctx, models.CreateBondInput{
		IdentityAddress: "0xghost",
		Amount:          "10",
		DurationDays:    30,
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeForeignKeyViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestBondNegativeAmountRejected() {
	s.identity("0xabc")

	_, err := s.db.Bonds().Create(s.ctx, models.CreateBondInput{
		IdentityAddress: "0xabc",
		Amount:          "-1",
		DurationDays:    30,
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestBondUpdateStatus() {
	s.identity("0xabc")
	bond := s.bond("0xabc", "100")

	updated, err := s.db.Bonds().UpdateStatus(s.ctx, bond.ID, models.BondStatusReleased)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal(models.BondStatusReleased, updated.Status)

	missing, err := s.db.Bonds().UpdateStatus(s.ctx, 999, models.BondStatusReleased)
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *MemoryStoreSuite) TestBondUpdateInvalidStatusRejected() {
	s.identity("0xabc")
	bond := s.bond("0xabc", "100")

	_, err := s.db.Bonds().UpdateStatus(s.ctx, bond.ID, "frozen")
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestBondListNewestFirst() {
	s.identity("0xabc")
	first := s.bond("0xabc", "1")
	s.now = s.now.Add(time.Minute)
	second := s.bond("0xabc", "2")

	bonds, err := s.db.Bonds().ListByIdentity(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().Len(bonds, 2)
	s.Equal(second.ID, bonds[0].ID)
	s.Equal(first.ID, bonds[1].ID)
}

// --- attestations ---

func (s *MemoryStoreSuite) TestAttestationUniqueTriple() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	in := models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           80,
	}
	_, err := s.db.Attestations().Create(s.ctx, in)
	s.Require().NoError(err)

	_, err = s.db.Attestations().Create(s.ctx, in)
	s.Require().Error(err)
	s.Equal(apperrors.CodeDuplicateKey, apperrors.CodeOf(err))

	// A different subject under the same bond is fine.
	s.identity("0xother")
	in.SubjectAddress = "0xother"
	_, err = s.db.Attestations().Create(s.ctx, in)
	s.Require().NoError(err)
}

func (s *MemoryStoreSuite) TestAttestationScoreRange() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	_, err := s.db.Attestations().Create(s.ctx, models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           101,
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestAttestationUpdateScore() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	created, err := s.db.Attestations().Create(s.ctx, models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           80,
	})
	s.Require().NoError(err)

	updated, err := s.db.Attestations().UpdateScore(s.ctx, created.ID, 95)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal(95, updated.Score)

	missing, err := s.db.Attestations().UpdateScore(s.ctx, 999, 50)
	s.Require().NoError(err)
	s.Nil(missing)
}

// --- slash events ---

func (s *MemoryStoreSuite) TestTotalSlashedForBond() {
	s.identity("0xabc")
	bond := s.bond("0xabc", "100")

	_, err := s.db.SlashEvents().Create(s.ctx, models.CreateSlashEventInput{
		BondID: bond.ID, SlashAmount: "2.5", Reason: "downtime",
	})
	s.Require().NoError(err)
	_, err = s.db.SlashEvents().Create(s.ctx, models.CreateSlashEventInput{
		BondID: bond.ID, SlashAmount: "4", Reason: "equivocation",
	})
	s.Require().NoError(err)

	total, err := s.db.SlashEvents().TotalSlashedForBond(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Equal("6.5", total)
}

func (s *MemoryStoreSuite) TestTotalSlashedEmptyIsZero() {
	s.identity("0xabc")
	bond := s.bond("0xabc", "100")

	total, err := s.db.SlashEvents().TotalSlashedForBond(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Equal("0", total)
}

func (s *MemoryStoreSuite) TestSlashEventEmptyReasonRejected() {
	s.identity("0xabc")
	bond := s.bond("0xabc", "100")

	_, err := s.db.SlashEvents().Create(s.ctx, models.CreateSlashEventInput{
		BondID: bond.ID, SlashAmount: "1", Reason: "   ",
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

func (s *MemoryStoreSuite) TestSlashEventRequiresBond() {
	_, err := s.db.SlashEvents().Create(s.ctx, models.CreateSlashEventInput{
		BondID: 999, SlashAmount: "1", Reason: "downtime",
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeForeignKeyViolation, apperrors.CodeOf(err))
}

// --- score history ---

func (s *MemoryStoreSuite) TestScoreEntryComputedAtDefaults() {
	s.identity("0xabc")

	entry, err := s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           72,
		Source:          models.ScoreSourceManual,
	})
	s.Require().NoError(err)
	s.Equal(s.now, entry.ComputedAt)

	explicit := s.now.Add(-time.Hour)
	entry, err = s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc",
		Score:           70,
		Source:          models.ScoreSourceManual,
		ComputedAt:      &explicit,
	})
	s.Require().NoError(err)
	s.Equal(explicit, entry.ComputedAt)
}

func (s *MemoryStoreSuite) TestScoreHistoryOrderedByComputedAt() {
	s.identity("0xabc")

	older := s.now.Add(-time.Hour)
	_, err := s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc", Score: 60, Source: models.ScoreSourceManual, ComputedAt: &older,
	})
	s.Require().NoError(err)
	_, err = s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc", Score: 70, Source: models.ScoreSourceBond,
	})
	s.Require().NoError(err)

	entries, err := s.db.ScoreHistory().ListByIdentity(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(70, entries[0].Score)
	s.Equal(60, entries[1].Score)
}

func (s *MemoryStoreSuite) TestScoreEntryInvalidSourceRejected() {
	s.identity("0xabc")

	_, err := s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xabc", Score: 60, Source: "oracle",
	})
	s.Require().Error(err)
	s.Equal(apperrors.CodeCheckViolation, apperrors.CodeOf(err))
}

// --- cascades ---

func (s *MemoryStoreSuite) TestIdentityDeleteCascades() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	attestation, err := s.db.Attestations().Create(s.ctx, models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           80,
	})
	s.Require().NoError(err)

	event, err := s.db.SlashEvents().Create(s.ctx, models.CreateSlashEventInput{
		BondID: bond.ID, SlashAmount: "1", Reason: "downtime",
	})
	s.Require().NoError(err)

	entry, err := s.db.ScoreHistory().Create(s.ctx, models.CreateScoreEntryInput{
		IdentityAddress: "0xatt", Score: 60, Source: models.ScoreSourceManual,
	})
	s.Require().NoError(err)

	removed, err := s.db.Identities().Delete(s.ctx, "0xatt")
	s.Require().NoError(err)
	s.True(removed)

	foundBond, err := s.db.Bonds().FindByID(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.Nil(foundBond)

	foundAttestation, err := s.db.Attestations().FindByID(s.ctx, attestation.ID)
	s.Require().NoError(err)
	s.Nil(foundAttestation)

	foundEvent, err := s.db.SlashEvents().FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Nil(foundEvent)

	foundEntry, err := s.db.ScoreHistory().FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Nil(foundEntry)

	// The subject identity survives.
	subject, err := s.db.Identities().FindByAddress(s.ctx, "0xsub")
	s.Require().NoError(err)
	s.NotNil(subject)
}

func (s *MemoryStoreSuite) TestSubjectDeleteRemovesAttestations() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	attestation, err := s.db.Attestations().Create(s.ctx, models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           80,
	})
	s.Require().NoError(err)

	removed, err := s.db.Identities().Delete(s.ctx, "0xsub")
	s.Require().NoError(err)
	s.True(removed)

	found, err := s.db.Attestations().FindByID(s.ctx, attestation.ID)
	s.Require().NoError(err)
	s.Nil(found)

	// The bond belongs to the attester and survives.
	foundBond, err := s.db.Bonds().FindByID(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.NotNil(foundBond)
}

func (s *MemoryStoreSuite) TestBondDeleteCascades() {
	s.identity("0xatt")
	s.identity("0xsub")
	bond := s.bond("0xatt", "100")

	attestation, err := s.db.Attestations().Create(s.ctx, models.CreateAttestationInput{
		BondID:          bond.ID,
		AttesterAddress: "0xatt",
		SubjectAddress:  "0xsub",
		Score:           80,
	})
	s.Require().NoError(err)

	removed, err := s.db.Bonds().Delete(s.ctx, bond.ID)
	s.Require().NoError(err)
	s.True(removed)

	found, err := s.db.Attestations().FindByID(s.ctx, attestation.ID)
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *MemoryStoreSuite) TestCopyOnReturn() {
	s.identity("0xabc")

	first, err := s.db.Identities().FindByAddress(s.ctx, "0xabc")
	s.Require().NoError(err)
	name := "mutated"
	first.DisplayName = &name

	second, err := s.db.Identities().FindByAddress(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Nil(second.DisplayName)
}
