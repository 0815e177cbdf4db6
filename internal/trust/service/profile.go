package service

import (
	"context"

	"github.com/shopspring/decimal"

	"trustgraph/internal/trust/models"
)

// TrustProfile is the aggregated, read-side view of one identity.
type TrustProfile struct {
	Identity         *models.Identity          `json:"identity"`
	ActiveBonds      []*models.Bond            `json:"activeBonds"`
	TotalBonded      string                    `json:"totalBonded"`
	TotalSlashed     string                    `json:"totalSlashed"`
	AttestationCount int                       `json:"attestationCount"`
	AverageScore     *int                      `json:"averageScore,omitempty"`
	LatestScore      *models.ScoreHistoryEntry `json:"latestScore,omitempty"`
}

// Profile aggregates everything known about one identity: active bonds,
// bonded and slashed totals across all of its bonds, attestation stats, and
// the most recent score snapshot.
func (s *Service) Profile(ctx context.Context, address string) (*TrustProfile, error) {
	identity, err := s.GetIdentity(ctx, address)
	if err != nil {
		return nil, err
	}

	bonds, err := s.bonds.ListByIdentity(ctx, address)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Bond, 0, len(bonds))
	totalBonded := decimal.Zero
	totalSlashed := decimal.Zero
	for _, bond := range bonds {
		amount, err := decimal.NewFromString(bond.Amount)
		if err != nil {
			return nil, err
		}
		if bond.Status == models.BondStatusActive {
			active = append(active, bond)
			totalBonded = totalBonded.Add(amount)
		}

		slashed, err := s.slashEvents.TotalSlashedForBond(ctx, bond.ID)
		if err != nil {
			return nil, err
		}
		slashedAmount, err := decimal.NewFromString(slashed)
		if err != nil {
			return nil, err
		}
		totalSlashed = totalSlashed.Add(slashedAmount)
	}

	attestations, err := s.attestations.ListBySubject(ctx, address)
	if err != nil {
		return nil, err
	}

	profile := &TrustProfile{
		Identity:         identity,
		ActiveBonds:      active,
		TotalBonded:      totalBonded.String(),
		TotalSlashed:     totalSlashed.String(),
		AttestationCount: len(attestations),
	}
	if avg, ok := averageAttestationScore(attestations); ok {
		profile.AverageScore = &avg
	}

	history, err := s.scoreHistory.ListByIdentity(ctx, address)
	if err != nil {
		return nil, err
	}
	// History is newest-first.
	if len(history) > 0 {
		profile.LatestScore = history[0]
	}

	if s.metrics != nil {
		s.metrics.RecordProfileBuild()
	}
	return profile, nil
}

// snapshotScore recomputes an identity's trust score and appends it to the
// history with the given provenance. Unknown identities are skipped; the
// triggering mutation may reference an address with no identity row only
// through a race with deletion.
func (s *Service) snapshotScore(ctx context.Context, address string, source models.ScoreSource) error {
	identity, err := s.identities.FindByAddress(ctx, address)
	if err != nil {
		return err
	}
	if identity == nil {
		return nil
	}

	score, err := s.computeScore(ctx, address)
	if err != nil {
		return err
	}

	computedAt := s.now()
	_, err = s.RecordScore(ctx, models.CreateScoreEntryInput{
		IdentityAddress: address,
		Score:           score,
		Source:          source,
		ComputedAt:      &computedAt,
	})
	return err
}

// computeScore derives a 0..100 trust score for one identity:
//
//	base    = average attestation score received, 50 when unattested
//	bonus   = +2 per active bond, capped at +10
//	penalty = up to -40, scaled by slashed/bonded ratio
func (s *Service) computeScore(ctx context.Context, address string) (int, error) {
	attestations, err := s.attestations.ListBySubject(ctx, address)
	if err != nil {
		return 0, err
	}

	base := 50
	if avg, ok := averageAttestationScore(attestations); ok {
		base = avg
	}

	bonds, err := s.bonds.ListByIdentity(ctx, address)
	if err != nil {
		return 0, err
	}

	bonus := 0
	totalBonded := decimal.Zero
	totalSlashed := decimal.Zero
	for _, bond := range bonds {
		if bond.Status == models.BondStatusActive {
			bonus += 2
		}
		amount, err := decimal.NewFromString(bond.Amount)
		if err != nil {
			return 0, err
		}
		totalBonded = totalBonded.Add(amount)

		slashed, err := s.slashEvents.TotalSlashedForBond(ctx, bond.ID)
		if err != nil {
			return 0, err
		}
		slashedAmount, err := decimal.NewFromString(slashed)
		if err != nil {
			return 0, err
		}
		totalSlashed = totalSlashed.Add(slashedAmount)
	}
	if bonus > 10 {
		bonus = 10
	}

	penalty := 0
	if totalSlashed.IsPositive() && totalBonded.IsPositive() {
		ratio := totalSlashed.Div(totalBonded)
		if ratio.GreaterThan(decimal.NewFromInt(1)) {
			ratio = decimal.NewFromInt(1)
		}
		penalty = int(ratio.Mul(decimal.NewFromInt(40)).Round(0).IntPart())
	}

	score := base + bonus - penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

func averageAttestationScore(attestations []*models.Attestation) (int, bool) {
	if len(attestations) == 0 {
		return 0, false
	}
	sum := 0
	for _, a := range attestations {
		sum += a.Score
	}
	return sum / len(attestations), true
}

func (s *Service) recordMutation(entity, operation string) {
	if s.metrics != nil {
		s.metrics.RecordMutation(entity, operation)
	}
}
