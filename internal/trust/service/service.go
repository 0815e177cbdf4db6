// Package service orchestrates the trust graph: identities, bonds,
// attestations, slash events, and the append-only score history behind them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trustgraph/internal/trust/metrics"
	"trustgraph/internal/trust/models"
	"trustgraph/internal/trust/ports"
	"trustgraph/pkg/apperrors"
)

type Service struct {
	identities   ports.IdentityStore
	bonds        ports.BondStore
	attestations ports.AttestationStore
	slashEvents  ports.SlashEventStore
	scoreHistory ports.ScoreHistoryStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
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

// WithNow injects the clock used for bond maturity and score snapshots.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Stores struct {
	Identities   ports.IdentityStore
	Bonds        ports.BondStore
	Attestations ports.AttestationStore
	SlashEvents  ports.SlashEventStore
	ScoreHistory ports.ScoreHistoryStore
}

func New(stores Stores, opts ...Option) (*Service, error) {
	if stores.Identities == nil || stores.Bonds == nil || stores.Attestations == nil ||
		stores.SlashEvents == nil || stores.ScoreHistory == nil {
		return nil, fmt.Errorf("all five stores are required")
	}

	svc := &Service{
		identities:   stores.Identities,
		bonds:        stores.Bonds,
		attestations: stores.Attestations,
		slashEvents:  stores.SlashEvents,
		scoreHistory: stores.ScoreHistory,
		logger:       slog.Default(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// --- identities ---

func (s *Service) RegisterIdentity(ctx context.Context, in models.CreateIdentityInput) (*models.Identity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	identity, err := s.identities.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.recordMutation("identity", "create")
	s.logger.InfoContext(ctx, "identity registered", "address", identity.Address)
	return identity, nil
}

func (s *Service) GetIdentity(ctx context.Context, address string) (*models.Identity, error) {
	identity, err := s.identities.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "identity not found")
	}
	return identity, nil
}

func (s *Service) ListIdentities(ctx context.Context) ([]*models.Identity, error) {
	return s.identities.List(ctx)
}

func (s *Service) UpdateDisplayName(ctx context.Context, address string, displayName *string) (*models.Identity, error) {
	identity, err := s.identities.UpdateDisplayName(ctx, address, displayName)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "identity not found")
	}

	s.recordMutation("identity", "update")
	s.logger.InfoContext(ctx, "identity display name updated", "address", address)
	return identity, nil
}

// RemoveIdentity deletes an identity and, through the store cascade, every
// bond, attestation, slash event, and score entry hanging off it.
func (s *Service) RemoveIdentity(ctx context.Context, address string) error {
	removed, err := s.identities.Delete(ctx, address)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.New(apperrors.CodeNotFound, "identity not found")
	}

	s.recordMutation("identity", "delete")
	s.logger.InfoContext(ctx, "identity removed", "address", address)
	return nil
}

// --- bonds ---

func (s *Service) PostBond(ctx context.Context, in models.CreateBondInput) (*models.Bond, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	bond, err := s.bonds.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.recordMutation("bond", "create")
	s.logger.InfoContext(ctx, "bond posted",
		"bond_id", bond.ID,
		"identity", bond.IdentityAddress,
		"amount", bond.Amount,
	)
	return bond, nil
}

func (s *Service) GetBond(ctx context.Context, id int64) (*models.Bond, error) {
	bond, err := s.bonds.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bond == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "bond not found")
	}
	return bond, nil
}

func (s *Service) ListBondsByIdentity(ctx context.Context, address string) ([]*models.Bond, error) {
	return s.bonds.ListByIdentity(ctx, address)
}

// ReleaseBond transitions an active bond to released. Only active bonds can
// be released.
func (s *Service) ReleaseBond(ctx context.Context, id int64) (*models.Bond, error) {
	bond, err := s.GetBond(ctx, id)
	if err != nil {
		return nil, err
	}
	if bond.Status != models.BondStatusActive {
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("cannot release bond in status %q", bond.Status))
	}

	updated, err := s.bonds.UpdateStatus(ctx, id, models.BondStatusReleased)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "bond not found")
	}

	s.recordMutation("bond", "release")
	s.logger.InfoContext(ctx, "bond released", "bond_id", id)
	return updated, nil
}

// SlashBond records a penalty against an active bond: the bond moves to
// slashed, a slash event is inserted, and a fresh score snapshot is appended
// for the bond's owner. Partial failure after the status flip is logged but
// not rolled back; the slash event is the authoritative record.
func (s *Service) SlashBond(ctx context.Context, id int64, slashAmount, reason string) (*models.SlashEvent, error) {
	bond, err := s.GetBond(ctx, id)
	if err != nil {
		return nil, err
	}
	if bond.Status == models.BondStatusReleased {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "cannot slash a released bond")
	}

	in := models.CreateSlashEventInput{
		BondID:      id,
		SlashAmount: slashAmount,
		Reason:      reason,
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	event, err := s.slashEvents.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if _, err := s.bonds.UpdateStatus(ctx, id, models.BondStatusSlashed); err != nil {
		s.logger.ErrorContext(ctx, "slash recorded but bond status update failed",
			"bond_id", id, "error", err)
	}

	s.recordMutation("bond", "slash")
	s.logger.InfoContext(ctx, "bond slashed",
		"bond_id", id,
		"identity", bond.IdentityAddress,
		"slash_amount", event.SlashAmount,
		"reason", reason,
	)

	if err := s.snapshotScore(ctx, bond.IdentityAddress, models.ScoreSourceSlash); err != nil {
		s.logger.ErrorContext(ctx, "score snapshot after slash failed",
			"identity", bond.IdentityAddress, "error", err)
	}
	return event, nil
}

func (s *Service) RemoveBond(ctx context.Context, id int64) error {
	removed, err := s.bonds.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.New(apperrors.CodeNotFound, "bond not found")
	}

	s.recordMutation("bond", "delete")
	s.logger.InfoContext(ctx, "bond removed", "bond_id", id)
	return nil
}

func (s *Service) ListSlashEvents(ctx context.Context, bondID int64) ([]*models.SlashEvent, error) {
	return s.slashEvents.ListByBond(ctx, bondID)
}

// TotalSlashed returns the decimal sum of slash amounts for one bond.
func (s *Service) TotalSlashed(ctx context.Context, bondID int64) (string, error) {
	return s.slashEvents.TotalSlashedForBond(ctx, bondID)
}

// --- attestations ---

func (s *Service) Attest(ctx context.Context, in models.CreateAttestationInput) (*models.Attestation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	attestation, err := s.attestations.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.recordMutation("attestation", "create")
	s.logger.InfoContext(ctx, "attestation recorded",
		"attestation_id", attestation.ID,
		"bond_id", attestation.BondID,
		"attester", attestation.AttesterAddress,
		"subject", attestation.SubjectAddress,
		"score", attestation.Score,
	)

	if err := s.snapshotScore(ctx, attestation.SubjectAddress, models.ScoreSourceAttestation); err != nil {
		s.logger.ErrorContext(ctx, "score snapshot after attestation failed",
			"identity", attestation.SubjectAddress, "error", err)
	}
	return attestation, nil
}

func (s *Service) GetAttestation(ctx context.Context, id int64) (*models.Attestation, error) {
	attestation, err := s.attestations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attestation == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "attestation not found")
	}
	return attestation, nil
}

func (s *Service) ListAttestationsByBond(ctx context.Context, bondID int64) ([]*models.Attestation, error) {
	return s.attestations.ListByBond(ctx, bondID)
}

func (s *Service) ListAttestationsBySubject(ctx context.Context, address string) ([]*models.Attestation, error) {
	return s.attestations.ListBySubject(ctx, address)
}

// ReviseAttestation replaces the score on an existing attestation.
func (s *Service) ReviseAttestation(ctx context.Context, id int64, score int) (*models.Attestation, error) {
	if score < 0 || score > 100 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "score must be between 0 and 100")
	}

	attestation, err := s.attestations.UpdateScore(ctx, id, score)
	if err != nil {
		return nil, err
	}
	if attestation == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "attestation not found")
	}

	s.recordMutation("attestation", "update")
	s.logger.InfoContext(ctx, "attestation revised", "attestation_id", id, "score", score)

	if err := s.snapshotScore(ctx, attestation.SubjectAddress, models.ScoreSourceAttestation); err != nil {
		s.logger.ErrorContext(ctx, "score snapshot after revision failed",
			"identity", attestation.SubjectAddress, "error", err)
	}
	return attestation, nil
}

func (s *Service) RemoveAttestation(ctx context.Context, id int64) error {
	removed, err := s.attestations.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.New(apperrors.CodeNotFound, "attestation not found")
	}

	s.recordMutation("attestation", "delete")
	s.logger.InfoContext(ctx, "attestation removed", "attestation_id", id)
	return nil
}

// --- score history ---

// RecordScore appends a manual or externally computed score snapshot.
func (s *Service) RecordScore(ctx context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.scoreHistory.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.recordMutation("score_history", "create")
	if s.metrics != nil {
		s.metrics.RecordScore(string(entry.Source), entry.Score)
	}
	s.logger.InfoContext(ctx, "score recorded",
		"identity", entry.IdentityAddress,
		"score", entry.Score,
		"source", entry.Source,
	)
	return entry, nil
}

func (s *Service) ScoreHistory(ctx context.Context, address string) ([]*models.ScoreHistoryEntry, error) {
	return s.scoreHistory.ListByIdentity(ctx, address)
}
