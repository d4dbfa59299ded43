package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	UpdateTotals(ctx context.Context, db *gorm.DB, bill *Bill) error
	FindForPeriodForUpdate(ctx context.Context, db *gorm.DB, unitID string, periodStart, periodEnd time.Time) (*Bill, error)
	FindByBillingID(ctx context.Context, db *gorm.DB, billingID string) (*Bill, error)
	ExistsBillingID(ctx context.Context, db *gorm.DB, billingID string) (bool, error)
	ListByUnit(ctx context.Context, db *gorm.DB, unitID string) ([]Bill, error)
	ReplaceCharges(ctx context.Context, db *gorm.DB, billingID string, charges []BillingAdditionalCharge) error
	ListCharges(ctx context.Context, db *gorm.DB, billingID string) ([]BillingAdditionalCharge, error)
}
