package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PDCStatus is the lifecycle state of a post-dated check.
type PDCStatus string

const (
	PDCStatusPending  PDCStatus = "pending"
	PDCStatusCleared  PDCStatus = "cleared"
	PDCStatusBounced  PDCStatus = "bounced"
	PDCStatusReplaced PDCStatus = "replaced"
)

// CanTransition reports whether a check may move from one status to another.
// Corrections between terminal statuses are allowed (a bounced check can be
// marked cleared after a bank correction), but a check never returns to
// pending and a transition must change the status.
func CanTransition(from, to PDCStatus) bool {
	if from == to {
		return false
	}
	return to != PDCStatusPending
}

// stampColumn maps a terminal status to the timestamp column it sets.
// Exactly one column is stamped per transition; earlier stamps are kept.
var stampColumn = map[PDCStatus]string{
	PDCStatusCleared:  "cleared_at",
	PDCStatusBounced:  "bounced_at",
	PDCStatusReplaced: "replaced_at",
}

func StampColumn(status PDCStatus) (string, bool) {
	column, ok := stampColumn[status]
	return column, ok
}

type PostDatedCheck struct {
	ID          snowflake.ID    `gorm:"column:id;primaryKey"`
	PDCID       string          `gorm:"column:pdc_id;uniqueIndex"`
	AgreementID string          `gorm:"column:agreement_id"`
	CheckNumber string          `gorm:"column:check_number"`
	Amount      decimal.Decimal `gorm:"column:amount"`
	DueDate     time.Time       `gorm:"column:due_date"`
	Status      PDCStatus       `gorm:"column:status"`
	ClearedAt   *time.Time      `gorm:"column:cleared_at"`
	BouncedAt   *time.Time      `gorm:"column:bounced_at"`
	ReplacedAt  *time.Time      `gorm:"column:replaced_at"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (PostDatedCheck) TableName() string {
	return "post_dated_checks"
}

// CheckContext carries the lease, unit, and property details used to compose
// the tenant-facing notification when a check clears.
type CheckContext struct {
	TenantID     string `gorm:"column:tenant_id"`
	LandlordID   string `gorm:"column:landlord_id"`
	UnitName     string `gorm:"column:unit_name"`
	PropertyName string `gorm:"column:property_name"`
}
