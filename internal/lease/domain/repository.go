package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertAgreement(ctx context.Context, db *gorm.DB, agreement *LeaseAgreement) error
	ExistsAgreementID(ctx context.Context, db *gorm.DB, agreementID string) (bool, error)
	FindAgreement(ctx context.Context, db *gorm.DB, agreementID string) (*LeaseAgreement, error)
	FindAgreementForUpdate(ctx context.Context, db *gorm.DB, agreementID string) (*LeaseAgreement, error)
	ExpireAgreement(ctx context.Context, db *gorm.DB, agreementID string, now time.Time) error

	InsertRenewal(ctx context.Context, db *gorm.DB, renewal *RenewalRequest) error
	ExistsRenewalID(ctx context.Context, db *gorm.DB, renewalID string) (bool, error)
	FindRenewalForUpdate(ctx context.Context, db *gorm.DB, renewalID string) (*RenewalRequest, error)
	UpdateRenewalStatus(ctx context.Context, db *gorm.DB, renewalID string, status RenewalStatus, decidedAt time.Time) error
	ListRenewalsByLandlord(ctx context.Context, db *gorm.DB, landlordID string) ([]RenewalRequest, error)
}
