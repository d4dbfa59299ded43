// Package domain contains persistence models for landlord platform
// subscriptions. Every payment attempt is recorded as its own row; the
// is_active flag marks the one row currently granting service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the recorded outcome of one payment attempt.
type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Subscription is one payment attempt for a landlord plan.
type Subscription struct {
	ID                     snowflake.ID    `gorm:"primaryKey"`
	LandlordID             string          `gorm:"type:text;not null;index"`
	PlanName               string          `gorm:"type:text;not null"`
	StartDate              time.Time       `gorm:"not null"`
	EndDate                time.Time       `gorm:"not null"`
	PaymentStatus          PaymentStatus   `gorm:"type:text;not null"`
	IsActive               bool            `gorm:"not null;default:false"`
	RequestReferenceNumber string          `gorm:"type:text;not null;uniqueIndex"`
	AmountPaid             decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt              time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
