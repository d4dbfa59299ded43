package repository

import (
	"context"
	"time"

	billingdomain "github.com/upkyp/upkyp/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *billingdomain.Bill) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bills (
			id, billing_id, unit_id, agreement_id, billing_period, total_amount_due,
			status, due_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID,
		bill.BillingID,
		bill.UnitID,
		bill.AgreementID,
		bill.BillingPeriod,
		bill.TotalAmountDue,
		bill.Status,
		bill.DueDate,
		bill.CreatedAt,
		bill.UpdatedAt,
	).Error
}

func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, bill *billingdomain.Bill) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET total_amount_due = ?, status = ?, updated_at = ?
		 WHERE billing_id = ?`,
		bill.TotalAmountDue,
		bill.Status,
		bill.UpdatedAt,
		bill.BillingID,
	).Error
}

func (r *repo) FindForPeriodForUpdate(ctx context.Context, db *gorm.DB, unitID string, periodStart, periodEnd time.Time) (*billingdomain.Bill, error) {
	query := `SELECT id, billing_id, unit_id, agreement_id, billing_period, total_amount_due,
	 status, due_date, created_at, updated_at
	 FROM bills
	 WHERE unit_id = ? AND billing_period >= ? AND billing_period < ?
	 LIMIT 1`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(query, unitID, periodStart, periodEnd).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindByBillingID(ctx context.Context, db *gorm.DB, billingID string) (*billingdomain.Bill, error) {
	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_id, unit_id, agreement_id, billing_period, total_amount_due,
		 status, due_date, created_at, updated_at
		 FROM bills WHERE billing_id = ?`,
		billingID,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) ExistsBillingID(ctx context.Context, db *gorm.DB, billingID string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM bills WHERE billing_id = ?`,
		billingID,
	).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByUnit(ctx context.Context, db *gorm.DB, unitID string) ([]billingdomain.Bill, error) {
	var bills []billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_id, unit_id, agreement_id, billing_period, total_amount_due,
		 status, due_date, created_at, updated_at
		 FROM bills WHERE unit_id = ? ORDER BY billing_period DESC`,
		unitID,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ReplaceCharges(ctx context.Context, db *gorm.DB, billingID string, charges []billingdomain.BillingAdditionalCharge) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM billing_additional_charges WHERE billing_id = ?`,
		billingID,
	).Error; err != nil {
		return err
	}

	for _, charge := range charges {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO billing_additional_charges (
				id, billing_id, category, charge_type, amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			charge.ID,
			charge.BillingID,
			charge.Category,
			charge.ChargeType,
			charge.Amount,
			charge.CreatedAt,
		).Error; err != nil {
			return err
		}
	}

	return nil
}

func (r *repo) ListCharges(ctx context.Context, db *gorm.DB, billingID string) ([]billingdomain.BillingAdditionalCharge, error) {
	var charges []billingdomain.BillingAdditionalCharge
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_id, category, charge_type, amount, created_at
		 FROM billing_additional_charges WHERE billing_id = ? ORDER BY id ASC`,
		billingID,
	).Scan(&charges).Error
	if err != nil {
		return nil, err
	}
	return charges, nil
}
