package memory

import (
	"context"
	"sort"

	"trustgraph/internal/trust/models"
)

// IdentityStore is the in-memory view over the identities table.
type IdentityStore struct {
	db *DB
}

// Identities returns the identity store backed by this database.
func (d *DB) Identities() *IdentityStore {
	return &IdentityStore{db: d}
}

func (s *IdentityStore) Create(_ context.Context, in models.CreateIdentityInput) (*models.Identity, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if trimmedEmpty(in.Address) {
		return nil, checkViolation("identities_address_nonempty")
	}
	if _, exists := s.db.identities[in.Address]; exists {
		return nil, duplicate("identities_pkey")
	}

	now := s.db.now().UTC()
	ident := models.Identity{
		Address:     in.Address,
		DisplayName: copyString(in.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.db.identities[in.Address] = ident
	out := ident
	return &out, nil
}

func (s *IdentityStore) FindByAddress(_ context.Context, address string) (*models.Identity, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if ident, ok := s.db.identities[address]; ok {
		out := ident
		return &out, nil
	}
	return nil, nil
}

func (s *IdentityStore) List(_ context.Context) ([]*models.Identity, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	identities := []*models.Identity{}
	for _, ident := range s.db.identities {
		out := ident
		identities = append(identities, &out)
	}
	sort.Slice(identities, func(i, j int) bool {
		if !identities[i].CreatedAt.Equal(identities[j].CreatedAt) {
			return identities[i].CreatedAt.Before(identities[j].CreatedAt)
		}
		return identities[i].Address < identities[j].Address
	})
	return identities, nil
}

func (s *IdentityStore) UpdateDisplayName(_ context.Context, address string, displayName *string) (*models.Identity, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ident, ok := s.db.identities[address]
	if !ok {
		return nil, nil
	}
	ident.DisplayName = copyString(displayName)
	ident.UpdatedAt = s.db.now().UTC()
	s.db.identities[address] = ident
	out := ident
	return &out, nil
}

func (s *IdentityStore) Delete(_ context.Context, address string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.identities[address]; !ok {
		return false, nil
	}
	s.db.deleteIdentityChildrenLocked(address)
	delete(s.db.identities, address)
	return true, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
