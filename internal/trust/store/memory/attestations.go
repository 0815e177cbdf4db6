package memory

import (
	"context"

	"trustgraph/internal/trust/models"
)

// AttestationStore is the in-memory view over the attestations table.
type AttestationStore struct {
	db *DB
}

// Attestations returns the attestation store backed by this database.
func (d *DB) Attestations() *AttestationStore {
	return &AttestationStore{db: d}
}

func (s *AttestationStore) Create(_ context.Context, in models.CreateAttestationInput) (*models.Attestation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.bonds[in.BondID]; !ok {
		return nil, fkViolation("attestations_bond_id_fkey")
	}
	if _, ok := s.db.identities[in.AttesterAddress]; !ok {
		return nil, fkViolation("attestations_attester_address_fkey")
	}
	if _, ok := s.db.identities[in.SubjectAddress]; !ok {
		return nil, fkViolation("attestations_subject_address_fkey")
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, checkViolation("attestations_score_check")
	}
	for _, a := range s.db.attestations {
		if a.BondID == in.BondID && a.AttesterAddress == in.AttesterAddress && a.SubjectAddress == in.SubjectAddress {
			return nil, duplicate("attestations_unique_attester_subject_per_bond")
		}
	}

	s.db.nextAttestID++
	a := models.Attestation{
		ID:              s.db.nextAttestID,
		BondID:          in.BondID,
		AttesterAddress: in.AttesterAddress,
		SubjectAddress:  in.SubjectAddress,
		Score:           in.Score,
		Note:            copyString(in.Note),
		CreatedAt:       s.db.now().UTC(),
	}
	s.db.attestations[a.ID] = a
	out := a
	return &out, nil
}

func (s *AttestationStore) FindByID(_ context.Context, id int64) (*models.Attestation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if a, ok := s.db.attestations[id]; ok {
		out := a
		return &out, nil
	}
	return nil, nil
}

func (s *AttestationStore) ListByBond(_ context.Context, bondID int64) ([]*models.Attestation, error) {
	return s.list(func(a models.Attestation) bool { return a.BondID == bondID })
}

func (s *AttestationStore) ListBySubject(_ context.Context, address string) ([]*models.Attestation, error) {
	return s.list(func(a models.Attestation) bool { return a.SubjectAddress == address })
}

func (s *AttestationStore) list(match func(models.Attestation) bool) ([]*models.Attestation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	attestations := []*models.Attestation{}
	for _, a := range s.db.attestations {
		if match(a) {
			out := a
			attestations = append(attestations, &out)
		}
	}
	sortAttestationsNewestFirst(attestations)
	return attestations, nil
}

func (s *AttestationStore) UpdateScore(_ context.Context, id int64, score int) (*models.Attestation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.attestations[id]
	if !ok {
		return nil, nil
	}
	if score < 0 || score > 100 {
		return nil, checkViolation("attestations_score_check")
	}
	a.Score = score
	s.db.attestations[id] = a
	out := a
	return &out, nil
}

func (s *AttestationStore) Delete(_ context.Context, id int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.attestations[id]; !ok {
		return false, nil
	}
	delete(s.db.attestations, id)
	return true, nil
}
