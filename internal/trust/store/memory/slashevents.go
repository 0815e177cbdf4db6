package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"trustgraph/internal/trust/models"
)

// SlashEventStore is the in-memory view over the slash_events table.
type SlashEventStore struct {
	db *DB
}

// SlashEvents returns the slash-event store backed by this database.
func (d *DB) SlashEvents() *SlashEventStore {
	return &SlashEventStore{db: d}
}

func (s *SlashEventStore) Create(_ context.Context, in models.CreateSlashEventInput) (*models.SlashEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.bonds[in.BondID]; !ok {
		return nil, fkViolation("slash_events_bond_id_fkey")
	}
	amount, ok := canonicalAmount(in.SlashAmount)
	if !ok || !positive(in.SlashAmount) {
		return nil, checkViolation("slash_events_slash_amount_check")
	}
	if trimmedEmpty(in.Reason) {
		return nil, checkViolation("slash_events_reason_nonempty")
	}

	s.db.nextSlashID++
	ev := models.SlashEvent{
		ID:          s.db.nextSlashID,
		BondID:      in.BondID,
		SlashAmount: amount,
		Reason:      in.Reason,
		CreatedAt:   s.db.now().UTC(),
	}
	s.db.slashEvents[ev.ID] = ev
	out := ev
	return &out, nil
}

func (s *SlashEventStore) FindByID(_ context.Context, id int64) (*models.SlashEvent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if ev, ok := s.db.slashEvents[id]; ok {
		out := ev
		return &out, nil
	}
	return nil, nil
}

func (s *SlashEventStore) ListByBond(_ context.Context, bondID int64) ([]*models.SlashEvent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	events := []*models.SlashEvent{}
	for _, ev := range s.db.slashEvents {
		if ev.BondID == bondID {
			out := ev
			events = append(events, &out)
		}
	}
	sortSlashEventsNewestFirst(events)
	return events, nil
}

func (s *SlashEventStore) TotalSlashedForBond(_ context.Context, bondID int64) (string, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	total := decimal.Zero
	for _, ev := range s.db.slashEvents {
		if ev.BondID != bondID {
			continue
		}
		amount, err := decimal.NewFromString(ev.SlashAmount)
		if err != nil {
			continue
		}
		total = total.Add(amount)
	}
	return total.String(), nil
}

func (s *SlashEventStore) Delete(_ context.Context, id int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.slashEvents[id]; !ok {
		return false, nil
	}
	delete(s.db.slashEvents, id)
	return true, nil
}
