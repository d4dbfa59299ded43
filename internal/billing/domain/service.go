package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ChargeInput is one requested charge or discount line.
type ChargeInput struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// UpsertBillRequest carries the complete desired state of the current-month
// bill for a unit. Charges are replace-not-merge: the caller always sends the
// full set.
type UpsertBillRequest struct {
	UnitID            string          `json:"unit_id"`
	AgreementID       string          `json:"agreement_id"`
	Total             decimal.Decimal `json:"total"`
	AdditionalCharges []ChargeInput   `json:"additional_charges"`
	Discounts         []ChargeInput   `json:"discounts"`
}

type UpsertBillResponse struct {
	BillingID string `json:"billing_id"`
	Created   bool   `json:"created"`
}

// BillDetail is a bill plus its charge lines.
type BillDetail struct {
	Bill    Bill                      `json:"bill"`
	Charges []BillingAdditionalCharge `json:"charges"`
}

type Service interface {
	Upsert(ctx context.Context, req UpsertBillRequest) (UpsertBillResponse, error)
	GetByID(ctx context.Context, billingID string) (BillDetail, error)
	ListByUnit(ctx context.Context, unitID string) ([]Bill, error)
}

var (
	ErrInvalidUnit      = errors.New("invalid_unit_id")
	ErrInvalidAgreement = errors.New("invalid_agreement_id")
	ErrInvalidTotal     = errors.New("invalid_total")
	ErrBillNotFound     = errors.New("bill_not_found")
)
