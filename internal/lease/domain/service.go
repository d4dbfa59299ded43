package domain

import (
	"context"
	"errors"
)

// Decision is the outcome of a renewal status update. AlreadyDecided marks a
// repeat of an earlier decision; the stored status is reported unchanged and
// no side effects run again.
type Decision struct {
	RenewalID      string        `json:"renewal_id"`
	Status         RenewalStatus `json:"status"`
	NewAgreementID string        `json:"new_agreement_id,omitempty"`
	AlreadyDecided bool          `json:"-"`
}

type Service interface {
	// RequestRenewal opens a pending renewal request for an active agreement.
	RequestRenewal(ctx context.Context, agreementID string) (RenewalRequest, error)
	// UpdateRenewalStatus approves or declines a request. Approval expires
	// the old agreement and inserts its successor in the same transaction.
	UpdateRenewalStatus(ctx context.Context, renewalID string, status string) (Decision, error)
	GetAgreement(ctx context.Context, agreementID string) (LeaseAgreement, error)
	ListRenewals(ctx context.Context, landlordID string) ([]RenewalRequest, error)
}

var (
	ErrInvalidAgreement  = errors.New("invalid_agreement_id")
	ErrInvalidLandlord   = errors.New("invalid_landlord_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrAgreementNotFound = errors.New("agreement_not_found")
	ErrAgreementExpired  = errors.New("agreement_expired")
	ErrRenewalNotFound   = errors.New("renewal_not_found")
)
