package bond

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pg "trustgraph/internal/platform/postgres"
	"trustgraph/internal/trust/models"
)

// PostgresStore persists bonds in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed bond store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in models.CreateBondInput) (*models.Bond, error) {
	status := in.Status
	if status == "" {
		status = models.BondStatusActive
	}
	startTime := in.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO bonds (identity_address, amount, start_time, duration_days, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, identity_address, amount, start_time, duration_days, status, created_at
	`, in.IdentityAddress, in.Amount, startTime, in.DurationDays, string(status))

	b, err := scanBond(row)
	if err != nil {
		return nil, pg.WrapError("create bond", err)
	}
	return b, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Bond, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_address, amount, start_time, duration_days, status, created_at
		FROM bonds
		WHERE id = $1
	`, id)

	b, err := scanBond(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("find bond", err)
	}
	return b, nil
}

// ListByIdentity returns an identity's bonds newest-first, descending id as
// the tiebreak.
func (s *PostgresStore) ListByIdentity(ctx context.Context, address string) ([]*models.Bond, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_address, amount, start_time, duration_days, status, created_at
		FROM bonds
		WHERE identity_address = $1
		ORDER BY created_at DESC, id DESC
	`, address)
	if err != nil {
		return nil, pg.WrapError("list bonds", err)
	}
	defer rows.Close()

	bonds := []*models.Bond{}
	for rows.Next() {
		b, err := scanBond(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bond: %w", err)
		}
		bonds = append(bonds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bonds: %w", err)
	}
	return bonds, nil
}

// UpdateStatus transitions a bond's status. Returns (nil, nil) when the id
// does not exist.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status models.BondStatus) (*models.Bond, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE bonds
		SET status = $2
		WHERE id = $1
		RETURNING id, identity_address, amount, start_time, duration_days, status, created_at
	`, id, string(status))

	b, err := scanBond(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("update bond status", err)
	}
	return b, nil
}

// Delete removes the bond; the schema cascades to its attestations and slash
// events.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bonds WHERE id = $1`, id)
	if err != nil {
		return false, pg.WrapError("delete bond", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete bond rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBond(row rowScanner) (*models.Bond, error) {
	var (
		b      models.Bond
		status string
	)
	if err := row.Scan(&b.ID, &b.IdentityAddress, &b.Amount, &b.StartTime, &b.DurationDays, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Amount = models.NormalizeDecimal(b.Amount)
	b.Status = models.BondStatus(status)
	return &b, nil
}
