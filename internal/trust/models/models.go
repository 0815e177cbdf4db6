package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trustgraph/pkg/apperrors"
)

// BondStatus is the lifecycle state of staked collateral.
type BondStatus string

const (
	BondStatusActive   BondStatus = "active"
	BondStatusReleased BondStatus = "released"
	BondStatusSlashed  BondStatus = "slashed"
)

// IsValid checks if the bond status is one of the supported enum values.
func (s BondStatus) IsValid() bool {
	switch s {
	case BondStatusActive, BondStatusReleased, BondStatusSlashed:
		return true
	}
	return false
}

// ScoreSource records the provenance of a score-history snapshot.
type ScoreSource string

const (
	ScoreSourceBond        ScoreSource = "bond"
	ScoreSourceAttestation ScoreSource = "attestation"
	ScoreSourceSlash       ScoreSource = "slash"
	ScoreSourceManual      ScoreSource = "manual"
)

// IsValid checks if the score source is one of the supported enum values.
func (s ScoreSource) IsValid() bool {
	switch s {
	case ScoreSourceBond, ScoreSourceAttestation, ScoreSourceSlash, ScoreSourceManual:
		return true
	}
	return false
}

// Identity is the root entity. It owns bonds, attestations (as attester and
// subject), and score-history entries; deleting it cascades through all of
// them.
type Identity struct {
	Address     string    `json:"address"`
	DisplayName *string   `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Bond is collateral staked by an identity. Amounts travel as decimal strings
// end-to-end; native floats would round on-chain-scale values.
type Bond struct {
	ID              int64      `json:"id"`
	IdentityAddress string     `json:"identityAddress"`
	Amount          string     `json:"amount"`
	StartTime       time.Time  `json:"startTime"`
	DurationDays    int        `json:"durationDays"`
	Status          BondStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Attestation is a scored claim by one identity about another, scoped to a
// bond. An attester may score a given subject at most once per bond.
type Attestation struct {
	ID              int64     `json:"id"`
	BondID          int64     `json:"bondId"`
	AttesterAddress string    `json:"attesterAddress"`
	SubjectAddress  string    `json:"subjectAddress"`
	Score           int       `json:"score"`
	Note            *string   `json:"note,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SlashEvent is a recorded penalty against a bond.
type SlashEvent struct {
	ID          int64     `json:"id"`
	BondID      int64     `json:"bondId"`
	SlashAmount string    `json:"slashAmount"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScoreHistoryEntry is an append-only trust-score snapshot.
type ScoreHistoryEntry struct {
	ID              int64       `json:"id"`
	IdentityAddress string      `json:"identityAddress"`
	Score           int         `json:"score"`
	Source          ScoreSource `json:"source"`
	ComputedAt      time.Time   `json:"computedAt"`
}

// CreateIdentityInput carries the caller-supplied fields for a new identity.
type CreateIdentityInput struct {
	Address     string  `json:"address"`
	DisplayName *string `json:"displayName,omitempty"`
}

// Validate enforces domain invariants before a statement runs.
func (in CreateIdentityInput) Validate() error {
	if strings.TrimSpace(in.Address) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "address cannot be empty")
	}
	return nil
}

// CreateBondInput carries the caller-supplied fields for a new bond.
// Status defaults to active when empty.
type CreateBondInput struct {
	IdentityAddress string     `json:"identityAddress"`
	Amount          string     `json:"amount"`
	StartTime       time.Time  `json:"startTime"`
	DurationDays    int        `json:"durationDays"`
	Status          BondStatus `json:"status,omitempty"`
}

func (in CreateBondInput) Validate() error {
	if strings.TrimSpace(in.IdentityAddress) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "identityAddress cannot be empty")
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return apperrors.New(apperrors.CodeInvalidInput, "amount must be a decimal string")
	}
	if amount.IsNegative() {
		return apperrors.New(apperrors.CodeInvalidInput, "amount cannot be negative")
	}
	if in.DurationDays <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "durationDays must be positive")
	}
	if in.Status != "" && !in.Status.IsValid() {
		return apperrors.New(apperrors.CodeInvalidInput, "invalid bond status")
	}
	return nil
}

// CreateAttestationInput carries the caller-supplied fields for a new
// attestation.
type CreateAttestationInput struct {
	BondID          int64   `json:"bondId"`
	AttesterAddress string  `json:"attesterAddress"`
	SubjectAddress  string  `json:"subjectAddress"`
	Score           int     `json:"score"`
	Note            *string `json:"note,omitempty"`
}

func (in CreateAttestationInput) Validate() error {
	if in.BondID <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "bondId is required")
	}
	if strings.TrimSpace(in.AttesterAddress) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "attesterAddress cannot be empty")
	}
	if strings.TrimSpace(in.SubjectAddress) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "subjectAddress cannot be empty")
	}
	if in.Score < 0 || in.Score > 100 {
		return apperrors.New(apperrors.CodeInvalidInput, "score must be between 0 and 100")
	}
	return nil
}

// CreateSlashEventInput carries the caller-supplied fields for a new slash
// event.
type CreateSlashEventInput struct {
	BondID      int64  `json:"bondId"`
	SlashAmount string `json:"slashAmount"`
	Reason      string `json:"reason"`
}

func (in CreateSlashEventInput) Validate() error {
	if in.BondID <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "bondId is required")
	}
	amount, err := decimal.NewFromString(in.SlashAmount)
	if err != nil {
		return apperrors.New(apperrors.CodeInvalidInput, "slashAmount must be a decimal string")
	}
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidInput, "slashAmount must be positive")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "reason cannot be empty")
	}
	return nil
}

// CreateScoreEntryInput carries the caller-supplied fields for a new
// score-history entry. ComputedAt defaults to the insert time when nil.
type CreateScoreEntryInput struct {
	IdentityAddress string      `json:"identityAddress"`
	Score           int         `json:"score"`
	Source          ScoreSource `json:"source"`
	ComputedAt      *time.Time  `json:"computedAt,omitempty"`
}

func (in CreateScoreEntryInput) Validate() error {
	if strings.TrimSpace(in.IdentityAddress) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "identityAddress cannot be empty")
	}
	if in.Score < 0 || in.Score > 100 {
		return apperrors.New(apperrors.CodeInvalidInput, "score must be between 0 and 100")
	}
	if !in.Source.IsValid() {
		return apperrors.New(apperrors.CodeInvalidInput, "invalid score source")
	}
	return nil
}
