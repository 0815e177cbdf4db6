// Package ports declares the store interfaces the trust service depends on.
// Every store has an in-memory and a PostgreSQL implementation.
//
// Contracts shared by all stores:
//   - Create returns the fully mapped entity including generated fields, or a
//     coded constraint error (duplicate_key, foreign_key_violation,
//     check_violation) the caller can branch on.
//   - Find returns (nil, nil) when the row does not exist.
//   - Update returns (nil, nil) when the target does not exist; it never
//     creates.
//   - List returns an empty slice, not an error, when nothing matches.
//     Ordering is newest-first by creation time with descending id as the
//     tiebreak, except IdentityStore.List which is oldest-first by creation
//     time then by address.
//   - Delete reports whether a row was removed; deleting twice yields true
//     then false.
package ports

import (
	"context"

	"trustgraph/internal/trust/models"
)

type IdentityStore interface {
	Create(ctx context.Context, in models.CreateIdentityInput) (*models.Identity, error)
	FindByAddress(ctx context.Context, address string) (*models.Identity, error)
	List(ctx context.Context) ([]*models.Identity, error)
	UpdateDisplayName(ctx context.Context, address string, displayName *string) (*models.Identity, error)
	Delete(ctx context.Context, address string) (bool, error)
}

type BondStore interface {
	Create(ctx context.Context, in models.CreateBondInput) (*models.Bond, error)
	FindByID(ctx context.Context, id int64) (*models.Bond, error)
	ListByIdentity(ctx context.Context, address string) ([]*models.Bond, error)
	UpdateStatus(ctx context.Context, id int64, status models.BondStatus) (*models.Bond, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type AttestationStore interface {
	Create(ctx context.Context, in models.CreateAttestationInput) (*models.Attestation, error)
	FindByID(ctx context.Context, id int64) (*models.Attestation, error)
	ListByBond(ctx context.Context, bondID int64) ([]*models.Attestation, error)
	ListBySubject(ctx context.Context, address string) ([]*models.Attestation, error)
	UpdateScore(ctx context.Context, id int64, score int) (*models.Attestation, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type SlashEventStore interface {
	Create(ctx context.Context, in models.CreateSlashEventInput) (*models.SlashEvent, error)
	FindByID(ctx context.Context, id int64) (*models.SlashEvent, error)
	ListByBond(ctx context.Context, bondID int64) ([]*models.SlashEvent, error)
	// TotalSlashedForBond returns the decimal sum of slash amounts as a
	// string, "0" when no rows match.
	TotalSlashedForBond(ctx context.Context, bondID int64) (string, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type ScoreHistoryStore interface {
	Create(ctx context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error)
	FindByID(ctx context.Context, id int64) (*models.ScoreHistoryEntry, error)
	ListByIdentity(ctx context.Context, address string) ([]*models.ScoreHistoryEntry, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
