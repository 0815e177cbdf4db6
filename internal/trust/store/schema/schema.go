// Package schema owns the persisted table surface. Table, column, and
// constraint names are stable identifiers; error-detection logic may
// pattern-match against constraint names, though the violation code is the
// primary contract.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		address      TEXT PRIMARY KEY,
		display_name TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT identities_address_nonempty CHECK (length(trim(address)) > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS bonds (
		id               BIGSERIAL PRIMARY KEY,
		identity_address TEXT NOT NULL REFERENCES identities(address) ON DELETE CASCADE,
		amount           NUMERIC(20,7) NOT NULL CHECK (amount >= 0),
		start_time       TIMESTAMPTZ NOT NULL,
		duration_days    INTEGER NOT NULL CHECK (duration_days > 0),
		status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'released', 'slashed')),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bonds_identity_address_idx ON bonds (identity_address)`,
	`CREATE TABLE IF NOT EXISTS attestations (
		id               BIGSERIAL PRIMARY KEY,
		bond_id          BIGINT NOT NULL REFERENCES bonds(id) ON DELETE CASCADE,
		attester_address TEXT NOT NULL REFERENCES identities(address) ON DELETE CASCADE,
		subject_address  TEXT NOT NULL REFERENCES identities(address) ON DELETE CASCADE,
		score            INTEGER NOT NULL CHECK (score >= 0 AND score <= 100),
		note             TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT attestations_unique_attester_subject_per_bond UNIQUE (bond_id, attester_address, subject_address)
	)`,
	`CREATE INDEX IF NOT EXISTS attestations_bond_id_idx ON attestations (bond_id)`,
	`CREATE INDEX IF NOT EXISTS attestations_subject_address_idx ON attestations (subject_address)`,
	`CREATE TABLE IF NOT EXISTS slash_events (
		id           BIGSERIAL PRIMARY KEY,
		bond_id      BIGINT NOT NULL REFERENCES bonds(id) ON DELETE CASCADE,
		slash_amount NUMERIC(20,7) NOT NULL CHECK (slash_amount > 0),
		reason       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT slash_events_reason_nonempty CHECK (length(trim(reason)) > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS slash_events_bond_id_idx ON slash_events (bond_id)`,
	`CREATE TABLE IF NOT EXISTS score_history (
		id               BIGSERIAL PRIMARY KEY,
		identity_address TEXT NOT NULL REFERENCES identities(address) ON DELETE CASCADE,
		score            INTEGER NOT NULL CHECK (score >= 0 AND score <= 100),
		source           TEXT NOT NULL CHECK (source IN ('bond', 'attestation', 'slash', 'manual')),
		computed_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS score_history_identity_address_idx ON score_history (identity_address)`,
}

// Drop order is the reverse dependency order: children before parents.
var dropStatements = []string{
	`DROP TABLE IF EXISTS score_history`,
	`DROP TABLE IF EXISTS slash_events`,
	`DROP TABLE IF EXISTS attestations`,
	`DROP TABLE IF EXISTS bonds`,
	`DROP TABLE IF EXISTS identities`,
}

// CreateSchema creates tables and indexes if absent. Safe to run at every
// boot.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range createStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// ResetDatabase truncates all five tables and restarts the surrogate-id
// sequences. Used to give every test a clean slate.
func ResetDatabase(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`TRUNCATE identities, bonds, attestations, slash_events, score_history RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	return nil
}

// DropSchema drops all tables in dependency order. Idempotent.
func DropSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range dropStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return nil
}
