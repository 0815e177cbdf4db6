package memory

import (
	"context"

	"trustgraph/internal/trust/models"
)

// ScoreHistoryStore is the in-memory view over the score_history table.
type ScoreHistoryStore struct {
	db *DB
}

// ScoreHistory returns the score-history store backed by this database.
func (d *DB) ScoreHistory() *ScoreHistoryStore {
	return &ScoreHistoryStore{db: d}
}

func (s *ScoreHistoryStore) Create(_ context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.identities[in.IdentityAddress]; !ok {
		return nil, fkViolation("score_history_identity_address_fkey")
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, checkViolation("score_history_score_check")
	}
	if !in.Source.IsValid() {
		return nil, checkViolation("score_history_source_check")
	}
	computedAt := s.db.now().UTC()
	if in.ComputedAt != nil {
		computedAt = *in.ComputedAt
	}

	s.db.nextScoreEntryID++
	entry := models.ScoreHistoryEntry{
		ID:              s.db.nextScoreEntryID,
		IdentityAddress: in.IdentityAddress,
		Score:           in.Score,
		Source:          in.Source,
		ComputedAt:      computedAt,
	}
	s.db.scoreHistory[entry.ID] = entry
	out := entry
	return &out, nil
}

func (s *ScoreHistoryStore) FindByID(_ context.Context, id int64) (*models.ScoreHistoryEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if entry, ok := s.db.scoreHistory[id]; ok {
		out := entry
		return &out, nil
	}
	return nil, nil
}

func (s *ScoreHistoryStore) ListByIdentity(_ context.Context, address string) ([]*models.ScoreHistoryEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	entries := []*models.ScoreHistoryEntry{}
	for _, entry := range s.db.scoreHistory {
		if entry.IdentityAddress == address {
			out := entry
			entries = append(entries, &out)
		}
	}
	sortScoreEntriesNewestFirst(entries)
	return entries, nil
}

func (s *ScoreHistoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.scoreHistory[id]; !ok {
		return false, nil
	}
	delete(s.db.scoreHistory, id)
	return true, nil
}
