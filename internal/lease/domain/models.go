package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AgreementStatus string

const (
	AgreementStatusActive  AgreementStatus = "active"
	AgreementStatusExpired AgreementStatus = "expired"
)

type RenewalStatus string

const (
	RenewalStatusPending  RenewalStatus = "pending"
	RenewalStatusApproved RenewalStatus = "approved"
	RenewalStatusDeclined RenewalStatus = "declined"
)

// LeaseAgreement is one tenancy term. Renewal never mutates the term: the
// old row is expired and a new row points back at it via IsRenewalOf, so
// lease history is a chain of immutable agreements.
type LeaseAgreement struct {
	ID              snowflake.ID     `gorm:"column:id;primaryKey"`
	AgreementID     string           `gorm:"column:agreement_id;uniqueIndex"`
	UnitID          string           `gorm:"column:unit_id"`
	TenantID        string           `gorm:"column:tenant_id"`
	LandlordID      string           `gorm:"column:landlord_id"`
	Status          AgreementStatus  `gorm:"column:status"`
	StartDate       time.Time        `gorm:"column:start_date"`
	EndDate         time.Time        `gorm:"column:end_date"`
	MonthlyRent     decimal.Decimal  `gorm:"column:monthly_rent"`
	DepositMonths   *int             `gorm:"column:deposit_months"`
	AdvanceMonths   *int             `gorm:"column:advance_months"`
	RentDueDay      *int             `gorm:"column:rent_due_day"`
	GracePeriodDays *int             `gorm:"column:grace_period_days"`
	PenaltyPercent  *decimal.Decimal `gorm:"column:penalty_percent"`
	IsRenewalOf     *string          `gorm:"column:is_renewal_of"`
	CreatedAt       time.Time        `gorm:"column:created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at"`
}

func (LeaseAgreement) TableName() string {
	return "lease_agreements"
}

type RenewalRequest struct {
	ID          snowflake.ID  `gorm:"column:id;primaryKey"`
	RenewalID   string        `gorm:"column:renewal_id;uniqueIndex"`
	AgreementID string        `gorm:"column:agreement_id"`
	TenantID    string        `gorm:"column:tenant_id"`
	LandlordID  string        `gorm:"column:landlord_id"`
	Status      RenewalStatus `gorm:"column:status"`
	DecidedAt   *time.Time    `gorm:"column:decided_at"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at"`
}

func (RenewalRequest) TableName() string {
	return "renewal_requests"
}
