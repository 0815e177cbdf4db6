package handler

import (
	"time"

	"trustgraph/internal/trust/models"
)

type createIdentityRequest struct {
	Address     string  `json:"address" validate:"required"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=256"`
}

func (r createIdentityRequest) toInput() models.CreateIdentityInput {
	return models.CreateIdentityInput{
		Address:     r.Address,
		DisplayName: r.DisplayName,
	}
}

type updateDisplayNameRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=256"`
}

type createBondRequest struct {
	IdentityAddress string     `json:"identityAddress" validate:"required"`
	Amount          string     `json:"amount" validate:"required"`
	StartTime       *time.Time `json:"startTime"`
	DurationDays    int        `json:"durationDays" validate:"required,gt=0"`
	Status          string     `json:"status" validate:"omitempty,oneof=active released slashed"`
}

func (r createBondRequest) toInput() models.CreateBondInput {
	in := models.CreateBondInput{
		IdentityAddress: r.IdentityAddress,
		Amount:          r.Amount,
		DurationDays:    r.DurationDays,
		Status:          models.BondStatus(r.Status),
	}
	if r.StartTime != nil {
		in.StartTime = *r.StartTime
	}
	return in
}

type slashBondRequest struct {
	SlashAmount string `json:"slashAmount" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

type createAttestationRequest struct {
	AttesterAddress string  `json:"attesterAddress" validate:"required"`
	SubjectAddress  string  `json:"subjectAddress" validate:"required"`
	Score           int     `json:"score" validate:"min=0,max=100"`
	Note            *string `json:"note" validate:"omitempty,max=1024"`
}

type reviseAttestationRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

type recordScoreRequest struct {
	IdentityAddress string     `json:"identityAddress" validate:"required"`
	Score           int        `json:"score" validate:"min=0,max=100"`
	Source          string     `json:"source" validate:"required,oneof=bond attestation slash manual"`
	ComputedAt      *time.Time `json:"computedAt"`
}

func (r recordScoreRequest) toInput() models.CreateScoreEntryInput {
	return models.CreateScoreEntryInput{
		IdentityAddress: r.IdentityAddress,
		Score:           r.Score,
		Source:          models.ScoreSource(r.Source),
		ComputedAt:      r.ComputedAt,
	}
}
