package scorehistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pg "trustgraph/internal/platform/postgres"
	"trustgraph/internal/trust/models"
)

// PostgresStore persists score-history entries in PostgreSQL. The table is
// append-only; entries are never updated.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed score-history store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error) {
	var row *sql.Row
	if in.ComputedAt != nil {
		row = s.db.QueryRowContext(ctx, `
			INSERT INTO score_history (identity_address, score, source, computed_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, identity_address, score, source, computed_at
		`, in.IdentityAddress, in.Score, string(in.Source), *in.ComputedAt)
	} else {
		row = s.db.QueryRowContext(ctx, `
			INSERT INTO score_history (identity_address, score, source)
			VALUES ($1, $2, $3)
			RETURNING id, identity_address, score, source, computed_at
		`, in.IdentityAddress, in.Score, string(in.Source))
	}

	entry, err := scanEntry(row)
	if err != nil {
		return nil, pg.WrapError("create score entry", err)
	}
	return entry, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.ScoreHistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_address, score, source, computed_at
		FROM score_history
		WHERE id = $1
	`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("find score entry", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, address string) ([]*models.ScoreHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_address, score, source, computed_at
		FROM score_history
		WHERE identity_address = $1
		ORDER BY computed_at DESC, id DESC
	`, address)
	if err != nil {
		return nil, pg.WrapError("list score history", err)
	}
	defer rows.Close()

	entries := []*models.ScoreHistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM score_history WHERE id = $1`, id)
	if err != nil {
		return false, pg.WrapError("delete score entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete score entry rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.ScoreHistoryEntry, error) {
	var (
		entry  models.ScoreHistoryEntry
		source string
	)
	if err := row.Scan(&entry.ID, &entry.IdentityAddress, &entry.Score, &source, &entry.ComputedAt); err != nil {
		return nil, err
	}
	entry.Source = models.ScoreSource(source)
	return &entry, nil
}
