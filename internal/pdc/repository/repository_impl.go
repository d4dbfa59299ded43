package repository

import (
	"context"
	"time"

	pdcdomain "github.com/upkyp/upkyp/internal/pdc/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pdcdomain.Repository {
	return &repo{}
}

const checkColumns = `id, pdc_id, agreement_id, check_number, amount, due_date, status,
 cleared_at, bounced_at, replaced_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, check *pdcdomain.PostDatedCheck) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO post_dated_checks (
			id, pdc_id, agreement_id, check_number, amount, due_date, status,
			cleared_at, bounced_at, replaced_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		check.ID,
		check.PDCID,
		check.AgreementID,
		check.CheckNumber,
		check.Amount,
		check.DueDate,
		check.Status,
		check.ClearedAt,
		check.BouncedAt,
		check.ReplacedAt,
		check.CreatedAt,
		check.UpdatedAt,
	).Error
}

func (r *repo) ExistsPDCID(ctx context.Context, db *gorm.DB, pdcID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM post_dated_checks WHERE pdc_id = ?`,
		pdcID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByPDCID(ctx context.Context, db *gorm.DB, pdcID string) (*pdcdomain.PostDatedCheck, error) {
	return r.findByPDCID(ctx, db, pdcID, false)
}

func (r *repo) FindByPDCIDForUpdate(ctx context.Context, db *gorm.DB, pdcID string) (*pdcdomain.PostDatedCheck, error) {
	return r.findByPDCID(ctx, db, pdcID, true)
}

func (r *repo) findByPDCID(ctx context.Context, db *gorm.DB, pdcID string, forUpdate bool) (*pdcdomain.PostDatedCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM post_dated_checks WHERE pdc_id = ? LIMIT 1`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var check pdcdomain.PostDatedCheck
	err := db.WithContext(ctx).Raw(query, pdcID).Scan(&check).Error
	if err != nil {
		return nil, err
	}
	if check.ID == 0 {
		return nil, nil
	}
	return &check, nil
}

func (r *repo) FindContext(ctx context.Context, db *gorm.DB, pdcID string) (*pdcdomain.CheckContext, error) {
	var checkContext pdcdomain.CheckContext
	err := db.WithContext(ctx).Raw(
		`SELECT la.tenant_id AS tenant_id,
		        la.landlord_id AS landlord_id,
		        COALESCE(u.name, '') AS unit_name,
		        COALESCE(p.name, '') AS property_name
		 FROM post_dated_checks pdc
		 JOIN lease_agreements la ON la.agreement_id = pdc.agreement_id
		 LEFT JOIN units u ON u.unit_id = la.unit_id
		 LEFT JOIN properties p ON p.property_id = u.property_id
		 WHERE pdc.pdc_id = ?
		 LIMIT 1`,
		pdcID,
	).Scan(&checkContext).Error
	if err != nil {
		return nil, err
	}
	if checkContext.TenantID == "" {
		return nil, nil
	}
	return &checkContext, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, pdcID string, status pdcdomain.PDCStatus, now time.Time) error {
	query := `UPDATE post_dated_checks SET status = ?, updated_at = ?`
	args := []any{status, now}
	if column, ok := pdcdomain.StampColumn(status); ok {
		query += `, ` + column + ` = ?`
		args = append(args, now)
	}
	query += ` WHERE pdc_id = ?`
	args = append(args, pdcID)

	return db.WithContext(ctx).Exec(query, args...).Error
}

func (r *repo) ListByAgreement(ctx context.Context, db *gorm.DB, agreementID string) ([]pdcdomain.PostDatedCheck, error) {
	var checks []pdcdomain.PostDatedCheck
	err := db.WithContext(ctx).Raw(
		`SELECT `+checkColumns+`
		 FROM post_dated_checks WHERE agreement_id = ? ORDER BY due_date ASC`,
		agreementID,
	).Scan(&checks).Error
	if err != nil {
		return nil, err
	}
	return checks, nil
}
