package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pg "trustgraph/internal/platform/postgres"
	"trustgraph/internal/trust/models"
)

// PostgresStore persists identities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in models.CreateIdentityInput) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO identities (address, display_name)
		VALUES ($1, $2)
		RETURNING address, display_name, created_at, updated_at
	`, in.Address, in.DisplayName)

	ident, err := scanIdentity(row)
	if err != nil {
		return nil, pg.WrapError("create identity", err)
	}
	return ident, nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, display_name, created_at, updated_at
		FROM identities
		WHERE address = $1
	`, address)

	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("find identity", err)
	}
	return ident, nil
}

// List returns all identities oldest-first by creation time, then by address.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, display_name, created_at, updated_at
		FROM identities
		ORDER BY created_at ASC, address ASC
	`)
	if err != nil {
		return nil, pg.WrapError("list identities", err)
	}
	defer rows.Close()

	identities := []*models.Identity{}
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// UpdateDisplayName overwrites the display name and refreshes updated_at.
// Returns (nil, nil) when the address does not exist.
func (s *PostgresStore) UpdateDisplayName(ctx context.Context, address string, displayName *string) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE identities
		SET display_name = $2, updated_at = now()
		WHERE address = $1
		RETURNING address, display_name, created_at, updated_at
	`, address, displayName)

	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("update identity display name", err)
	}
	return ident, nil
}

// Delete removes the identity; the schema cascades through bonds,
// attestations, slash events, and score history.
func (s *PostgresStore) Delete(ctx context.Context, address string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE address = $1`, address)
	if err != nil {
		return false, pg.WrapError("delete identity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete identity rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		ident       models.Identity
		displayName sql.NullString
	)
	if err := row.Scan(&ident.Address, &displayName, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
		return nil, err
	}
	if displayName.Valid {
		ident.DisplayName = &displayName.String
	}
	return &ident, nil
}
