package slashevent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pg "trustgraph/internal/platform/postgres"
	"trustgraph/internal/trust/models"
)

// PostgresStore persists slash events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed slash-event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in models.CreateSlashEventInput) (*models.SlashEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO slash_events (bond_id, slash_amount, reason)
		VALUES ($1, $2, $3)
		RETURNING id, bond_id, slash_amount, reason, created_at
	`, in.BondID, in.SlashAmount, in.Reason)

	ev, err := scanSlashEvent(row)
	if err != nil {
		return nil, pg.WrapError("create slash event", err)
	}
	return ev, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.SlashEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, bond_id, slash_amount, reason, created_at
		FROM slash_events
		WHERE id = $1
	`, id)

	ev, err := scanSlashEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pg.WrapError("find slash event", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListByBond(ctx context.Context, bondID int64) ([]*models.SlashEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bond_id, slash_amount, reason, created_at
		FROM slash_events
		WHERE bond_id = $1
		ORDER BY created_at DESC, id DESC
	`, bondID)
	if err != nil {
		return nil, pg.WrapError("list slash events", err)
	}
	defer rows.Close()

	events := []*models.SlashEvent{}
	for rows.Next() {
		ev, err := scanSlashEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slash event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slash events: %w", err)
	}
	return events, nil
}

// TotalSlashedForBond returns the decimal sum of slash amounts as a string,
// "0" when the bond has no events.
func (s *PostgresStore) TotalSlashedForBond(ctx context.Context, bondID int64) (string, error) {
	var total string
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(slash_amount), 0)
		FROM slash_events
		WHERE bond_id = $1
	`, bondID).Scan(&total)
	if err != nil {
		return "", pg.WrapError("total slashed for bond", err)
	}
	return models.NormalizeDecimal(total), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slash_events WHERE id = $1`, id)
	if err != nil {
		return false, pg.WrapError("delete slash event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete slash event rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlashEvent(row rowScanner) (*models.SlashEvent, error) {
	var ev models.SlashEvent
	if err := row.Scan(&ev.ID, &ev.BondID, &ev.SlashAmount, &ev.Reason, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.SlashAmount = models.NormalizeDecimal(ev.SlashAmount)
	return &ev, nil
}
