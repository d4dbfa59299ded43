// Package domain contains persistence models for monthly unit bills.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BillStatus represents payment states for a monthly bill.
type BillStatus string

const (
	BillStatusUnpaid BillStatus = "unpaid"
	BillStatusPaid   BillStatus = "paid"
)

// ChargeCategory tags a charge line as an addition or a discount.
type ChargeCategory string

const (
	ChargeCategoryAdditional ChargeCategory = "additional"
	ChargeCategoryDiscount   ChargeCategory = "discount"
)

// Bill captures a unit's charges for one calendar month.
type Bill struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	BillingID      string          `gorm:"type:text;not null;uniqueIndex"`
	UnitID         string          `gorm:"type:text;not null;index"`
	AgreementID    string          `gorm:"type:text;not null"`
	BillingPeriod  time.Time       `gorm:"not null"`
	TotalAmountDue decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status         BillStatus      `gorm:"type:text;not null"`
	DueDate        time.Time       `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// BillingAdditionalCharge is a child line of a Bill. The full charge set is
// deleted and reinserted on every upsert.
type BillingAdditionalCharge struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	BillingID  string          `gorm:"type:text;not null;index"`
	Category   ChargeCategory  `gorm:"type:text;not null"`
	ChargeType string          `gorm:"column:charge_type;type:text;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingAdditionalCharge) TableName() string { return "billing_additional_charges" }
