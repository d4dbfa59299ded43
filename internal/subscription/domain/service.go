package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// CallbackStatus is the gateway-reported outcome of a payment attempt.
type CallbackStatus string

const (
	CallbackStatusSuccess   CallbackStatus = "success"
	CallbackStatusFailed    CallbackStatus = "failed"
	CallbackStatusCancelled CallbackStatus = "cancelled"
)

// PaymentStatusRequest is the payment gateway callback payload. The reference
// number is the external idempotency key; the gateway may redeliver it.
type PaymentStatusRequest struct {
	ReferenceNumber string          `json:"requestReferenceNumber"`
	LandlordID      string          `json:"landlord_id"`
	PlanName        string          `json:"plan_name"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
}

type PaymentStatusResponse struct {
	ReferenceNumber string        `json:"requestReferenceNumber"`
	PaymentStatus   PaymentStatus `json:"status"`
	Replayed        bool          `json:"-"`
}

type Service interface {
	RecordPaymentStatus(ctx context.Context, req PaymentStatusRequest) (PaymentStatusResponse, error)
	GetActive(ctx context.Context, landlordID string) (Subscription, error)
	List(ctx context.Context, landlordID string) ([]Subscription, error)
}

var (
	ErrInvalidReference     = errors.New("invalid_reference_number")
	ErrInvalidLandlord      = errors.New("invalid_landlord_id")
	ErrInvalidPlan          = errors.New("invalid_plan_name")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
