package attestation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pg "trustgraph/internal/platform/postgres"
	"trustgraph/internal/trust/models"
)

// PostgresStore persists attestations in PostgreSQL. The schema enforces that
// an attester scores a given subject at most once per bond.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attestation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in models.CreateAttestationInput) (*models.Attestation, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attestations (bond_id, attester_address, subject_address, score, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, bond_id, attester_address, subject_address, score, note, created_at
	`, in.BondID, in.AttesterAddress, in.SubjectAddress, in.Score, in.Note)

	a, err := scanAttestation(row)
	if err != nil {
		return nil, pg.WrapError("create attestation", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Attestation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, bond_id, attester_address, subject_address, score, note, created_at
		FROM attestations
		WHERE id = $1
	`, id)

	a, err := scanAttestation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("find attestation", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByBond(ctx context.Context, bondID int64) ([]*models.Attestation, error) {
	return s.list(ctx, `WHERE bond_id = $1`, bondID)
}

func (s *PostgresStore) ListBySubject(ctx context.Context, address string) ([]*models.Attestation, error) {
	return s.list(ctx, `WHERE subject_address = $1`, address)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg any) ([]*models.Attestation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bond_id, attester_address, subject_address, score, note, created_at
		FROM attestations
		`+where+`
		ORDER BY created_at DESC, id DESC
	`, arg)
	if err != nil {
		return nil, pg.WrapError("list attestations", err)
	}
	defer rows.Close()

	attestations := []*models.Attestation{}
	for rows.Next() {
		a, err := scanAttestation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		attestations = append(attestations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attestations: %w", err)
	}
	return attestations, nil
}

// UpdateScore overwrites an attestation's score. Returns (nil, nil) when the
// id does not exist.
func (s *PostgresStore) UpdateScore(ctx context.Context, id int64, score int) (*models.Attestation, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE attestations
		SET score = $2
		WHERE id = $1
		RETURNING id, bond_id, attester_address, subject_address, score, note, created_at
	`, id, score)

	a, err := scanAttestation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("update attestation score", err)
	}
	return a, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attestations WHERE id = $1`, id)
	if err != nil {
		return false, pg.WrapError("delete attestation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attestation rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttestation(row rowScanner) (*models.Attestation, error) {
	var (
		a    models.Attestation
		note sql.NullString
	)
	if err := row.Scan(&a.ID, &a.BondID, &a.AttesterAddress, &a.SubjectAddress, &a.Score, &note, &a.CreatedAt); err != nil {
		return nil, err
	}
	if note.Valid {
		a.Note = &note.String
	}
	return &a, nil
}
