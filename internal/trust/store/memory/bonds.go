package memory

import (
	"context"

	"trustgraph/internal/trust/models"
)

// BondStore is the in-memory view over the bonds table.
type BondStore struct {
	db *DB
}

// Bonds returns the bond store backed by this database.
func (d *DB) Bonds() *BondStore {
	return &BondStore{db: d}
}

func (s *BondStore) Create(_ context.Context, in models.CreateBondInput) (*models.Bond, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.identities[in.IdentityAddress]; !ok {
		return nil, fkViolation("bonds_identity_address_fkey")
	}
	amount, ok := canonicalAmount(in.Amount)
	if !ok || !nonNegative(in.Amount) {
		return nil, checkViolation("bonds_amount_check")
	}
	if in.DurationDays <= 0 {
		return nil, checkViolation("bonds_duration_days_check")
	}
	status := in.Status
	if status == "" {
		status = models.BondStatusActive
	}
	if !status.IsValid() {
		return nil, checkViolation("bonds_status_check")
	}
	startTime := in.StartTime
	if startTime.IsZero() {
		startTime = s.db.now().UTC()
	}

	s.db.nextBondID++
	b := models.Bond{
		ID:              s.db.nextBondID,
		IdentityAddress: in.IdentityAddress,
		Amount:          amount,
		StartTime:       startTime,
		DurationDays:    in.DurationDays,
		Status:          status,
		CreatedAt:       s.db.now().UTC(),
	}
	s.db.bonds[b.ID] = b
	out := b
	return &out, nil
}

func (s *BondStore) FindByID(_ context.Context, id int64) (*models.Bond, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if b, ok := s.db.bonds[id]; ok {
		out := b
		return &out, nil
	}
	return nil, nil
}

func (s *BondStore) ListByIdentity(_ context.Context, address string) ([]*models.Bond, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	bonds := []*models.Bond{}
	for _, b := range s.db.bonds {
		if b.IdentityAddress == address {
			out := b
			bonds = append(bonds, &out)
		}
	}
	sortBondsNewestFirst(bonds)
	return bonds, nil
}

func (s *BondStore) UpdateStatus(_ context.Context, id int64, status models.BondStatus) (*models.Bond, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	b, ok := s.db.bonds[id]
	if !ok {
		return nil, nil
	}
	if !status.IsValid() {
		return nil, checkViolation("bonds_status_check")
	}
	b.Status = status
	s.db.bonds[id] = b
	out := b
	return &out, nil
}

func (s *BondStore) Delete(_ context.Context, id int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.bonds[id]; !ok {
		return false, nil
	}
	s.db.deleteBondChildrenLocked(id)
	delete(s.db.bonds, id)
	return true, nil
}
