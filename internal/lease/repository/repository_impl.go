package repository

import (
	"context"
	"time"

	leasedomain "github.com/upkyp/upkyp/internal/lease/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() leasedomain.Repository {
	return &repo{}
}

const agreementColumns = `id, agreement_id, unit_id, tenant_id, landlord_id, status,
 start_date, end_date, monthly_rent, deposit_months, advance_months, rent_due_day,
 grace_period_days, penalty_percent, is_renewal_of, created_at, updated_at`

const renewalColumns = `id, renewal_id, agreement_id, tenant_id, landlord_id, status,
 decided_at, created_at, updated_at`

func (r *repo) InsertAgreement(ctx context.Context, db *gorm.DB, agreement *leasedomain.LeaseAgreement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO lease_agreements (
			id, agreement_id, unit_id, tenant_id, landlord_id, status,
			start_date, end_date, monthly_rent, deposit_months, advance_months,
			rent_due_day, grace_period_days, penalty_percent, is_renewal_of,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agreement.ID,
		agreement.AgreementID,
		agreement.UnitID,
		agreement.TenantID,
		agreement.LandlordID,
		agreement.Status,
		agreement.StartDate,
		agreement.EndDate,
		agreement.MonthlyRent,
		agreement.DepositMonths,
		agreement.AdvanceMonths,
		agreement.RentDueDay,
		agreement.GracePeriodDays,
		agreement.PenaltyPercent,
		agreement.IsRenewalOf,
		agreement.CreatedAt,
		agreement.UpdatedAt,
	).Error
}

func (r *repo) ExistsAgreementID(ctx context.Context, db *gorm.DB, agreementID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM lease_agreements WHERE agreement_id = ?`,
		agreementID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindAgreement(ctx context.Context, db *gorm.DB, agreementID string) (*leasedomain.LeaseAgreement, error) {
	return r.findAgreement(ctx, db, agreementID, false)
}

func (r *repo) FindAgreementForUpdate(ctx context.Context, db *gorm.DB, agreementID string) (*leasedomain.LeaseAgreement, error) {
	return r.findAgreement(ctx, db, agreementID, true)
}

func (r *repo) findAgreement(ctx context.Context, db *gorm.DB, agreementID string, forUpdate bool) (*leasedomain.LeaseAgreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM lease_agreements WHERE agreement_id = ? LIMIT 1`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var agreement leasedomain.LeaseAgreement
	err := db.WithContext(ctx).Raw(query, agreementID).Scan(&agreement).Error
	if err != nil {
		return nil, err
	}
	if agreement.ID == 0 {
		return nil, nil
	}
	return &agreement, nil
}

func (r *repo) ExpireAgreement(ctx context.Context, db *gorm.DB, agreementID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lease_agreements SET status = ?, updated_at = ? WHERE agreement_id = ?`,
		leasedomain.AgreementStatusExpired,
		now,
		agreementID,
	).Error
}

func (r *repo) InsertRenewal(ctx context.Context, db *gorm.DB, renewal *leasedomain.RenewalRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO renewal_requests (
			id, renewal_id, agreement_id, tenant_id, landlord_id, status,
			decided_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		renewal.ID,
		renewal.RenewalID,
		renewal.AgreementID,
		renewal.TenantID,
		renewal.LandlordID,
		renewal.Status,
		renewal.DecidedAt,
		renewal.CreatedAt,
		renewal.UpdatedAt,
	).Error
}

func (r *repo) ExistsRenewalID(ctx context.Context, db *gorm.DB, renewalID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM renewal_requests WHERE renewal_id = ?`,
		renewalID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindRenewalForUpdate(ctx context.Context, db *gorm.DB, renewalID string) (*leasedomain.RenewalRequest, error) {
	query := `SELECT ` + renewalColumns + ` FROM renewal_requests WHERE renewal_id = ? LIMIT 1`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var renewal leasedomain.RenewalRequest
	err := db.WithContext(ctx).Raw(query, renewalID).Scan(&renewal).Error
	if err != nil {
		return nil, err
	}
	if renewal.ID == 0 {
		return nil, nil
	}
	return &renewal, nil
}

func (r *repo) UpdateRenewalStatus(ctx context.Context, db *gorm.DB, renewalID string, status leasedomain.RenewalStatus, decidedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE renewal_requests SET status = ?, decided_at = ?, updated_at = ? WHERE renewal_id = ?`,
		status,
		decidedAt,
		decidedAt,
		renewalID,
	).Error
}

func (r *repo) ListRenewalsByLandlord(ctx context.Context, db *gorm.DB, landlordID string) ([]leasedomain.RenewalRequest, error) {
	var renewals []leasedomain.RenewalRequest
	err := db.WithContext(ctx).Raw(
		`SELECT `+renewalColumns+`
		 FROM renewal_requests WHERE landlord_id = ? ORDER BY created_at DESC`,
		landlordID,
	).Scan(&renewals).Error
	if err != nil {
		return nil, err
	}
	return renewals, nil
}
