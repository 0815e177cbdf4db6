// Package memory implements the trust store ports over in-process maps. It
// emulates the same constraint, cascade, and ordering semantics as the
// PostgreSQL stores so unit tests and lightweight deployments see identical
// behavior, including the coded error taxonomy.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trustgraph/internal/trust/models"
	"trustgraph/pkg/apperrors"
)

// DB is a single shared mutable database. One mutex guards all five tables
// so cascading deletes stay atomic, matching per-statement atomicity in the
// SQL engine.
type DB struct {
	mu           sync.RWMutex
	now          func() time.Time
	identities   map[string]models.Identity
	bonds        map[int64]models.Bond
	attestations map[int64]models.Attestation
	slashEvents  map[int64]models.SlashEvent
	scoreHistory map[int64]models.ScoreHistoryEntry

	nextBondID       int64
	nextAttestID     int64
	nextSlashID      int64
	nextScoreEntryID int64
}

// Option configures a DB.
type Option func(*DB)

// WithNow injects the clock used for generated timestamps.
func WithNow(now func() time.Time) Option {
	return func(d *DB) {
		d.now = now
	}
}

// New creates an empty in-memory database.
func New(opts ...Option) *DB {
	d := &DB{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	d.reset()
	return d
}

// Reset drops all rows and restarts the surrogate-id sequences.
func (d *DB) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *DB) reset() {
	d.identities = make(map[string]models.Identity)
	d.bonds = make(map[int64]models.Bond)
	d.attestations = make(map[int64]models.Attestation)
	d.slashEvents = make(map[int64]models.SlashEvent)
	d.scoreHistory = make(map[int64]models.ScoreHistoryEntry)
	d.nextBondID = 0
	d.nextAttestID = 0
	d.nextSlashID = 0
	d.nextScoreEntryID = 0
}

func duplicate(constraint string) error {
	return apperrors.New(apperrors.CodeDuplicateKey, "duplicate key: "+constraint)
}

func fkViolation(constraint string) error {
	return apperrors.New(apperrors.CodeForeignKeyViolation, "referenced row does not exist: "+constraint)
}

func checkViolation(constraint string) error {
	return apperrors.New(apperrors.CodeCheckViolation, "check constraint failed: "+constraint)
}

// deleteBondChildrenLocked removes a bond's attestations and slash events.
func (d *DB) deleteBondChildrenLocked(bondID int64) {
	for id, a := range d.attestations {
		if a.BondID == bondID {
			delete(d.attestations, id)
		}
	}
	for id, ev := range d.slashEvents {
		if ev.BondID == bondID {
			delete(d.slashEvents, id)
		}
	}
}

// deleteIdentityChildrenLocked cascades an identity delete through bonds,
// attestations referencing the identity as attester or subject, and score
// history.
func (d *DB) deleteIdentityChildrenLocked(address string) {
	for id, b := range d.bonds {
		if b.IdentityAddress == address {
			d.deleteBondChildrenLocked(id)
			delete(d.bonds, id)
		}
	}
	for id, a := range d.attestations {
		if a.AttesterAddress == address || a.SubjectAddress == address {
			delete(d.attestations, id)
		}
	}
	for id, entry := range d.scoreHistory {
		if entry.IdentityAddress == address {
			delete(d.scoreHistory, id)
		}
	}
}

func canonicalAmount(s string) (string, bool) {
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	return dec.String(), true
}

func nonNegative(s string) bool {
	dec, err := decimal.NewFromString(s)
	return err == nil && !dec.IsNegative()
}

func positive(s string) bool {
	dec, err := decimal.NewFromString(s)
	return err == nil && dec.IsPositive()
}

func trimmedEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// newestFirst orders by creation time descending with descending id as the
// tiebreak, matching the SQL list contract.
func newestFirst(createdA, createdB time.Time, idA, idB int64) bool {
	if !createdA.Equal(createdB) {
		return createdA.After(createdB)
	}
	return idA > idB
}

func sortBondsNewestFirst(bonds []*models.Bond) {
	sort.Slice(bonds, func(i, j int) bool {
		return newestFirst(bonds[i].CreatedAt, bonds[j].CreatedAt, bonds[i].ID, bonds[j].ID)
	})
}

func sortAttestationsNewestFirst(attestations []*models.Attestation) {
	sort.Slice(attestations, func(i, j int) bool {
		return newestFirst(attestations[i].CreatedAt, attestations[j].CreatedAt, attestations[i].ID, attestations[j].ID)
	})
}

func sortSlashEventsNewestFirst(events []*models.SlashEvent) {
	sort.Slice(events, func(i, j int) bool {
		return newestFirst(events[i].CreatedAt, events[j].CreatedAt, events[i].ID, events[j].ID)
	})
}

func sortScoreEntriesNewestFirst(entries []*models.ScoreHistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return newestFirst(entries[i].ComputedAt, entries[j].ComputedAt, entries[i].ID, entries[j].ID)
	})
}
