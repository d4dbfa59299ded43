package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateCheckRequest struct {
	AgreementID string          `json:"lease_id"`
	CheckNumber string          `json:"check_number"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
}

type Service interface {
	Create(ctx context.Context, req CreateCheckRequest) (PostDatedCheck, error)
	// UpdateStatus applies a validated transition and, when the check
	// clears, notifies the tenant in the same transaction.
	UpdateStatus(ctx context.Context, pdcID string, status string) (PostDatedCheck, error)
	GetByID(ctx context.Context, pdcID string) (PostDatedCheck, error)
	ListByAgreement(ctx context.Context, agreementID string) ([]PostDatedCheck, error)
}

var (
	ErrInvalidAgreement  = errors.New("invalid_agreement_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidDueDate    = errors.New("invalid_due_date")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrIllegalTransition = errors.New("illegal_status_transition")
	ErrCheckNotFound     = errors.New("check_not_found")
)
