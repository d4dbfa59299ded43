package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/upkyp/upkyp/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, landlord_id, plan_name, start_date, end_date, payment_status,
 is_active, request_reference_number, amount_paid, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, landlord_id, plan_name, start_date, end_date, payment_status,
			is_active, request_reference_number, amount_paid, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.LandlordID,
		subscription.PlanName,
		subscription.StartDate,
		subscription.EndDate,
		subscription.PaymentStatus,
		subscription.IsActive,
		subscription.RequestReferenceNumber,
		subscription.AmountPaid,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, referenceNumber string) (*subscriptiondomain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
	 FROM subscriptions WHERE request_reference_number = ? LIMIT 1`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(query, referenceNumber).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindActiveByLandlordForUpdate(ctx context.Context, db *gorm.DB, landlordID string) (*subscriptiondomain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
	 FROM subscriptions WHERE landlord_id = ? AND is_active
	 ORDER BY created_at DESC LIMIT 1`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(query, landlordID).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindActiveByLandlord(ctx context.Context, db *gorm.DB, landlordID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE landlord_id = ? AND is_active
		 ORDER BY created_at DESC LIMIT 1`,
		landlordID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) DeactivateByLandlord(ctx context.Context, db *gorm.DB, landlordID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET is_active = ?, updated_at = ? WHERE landlord_id = ? AND is_active`,
		false,
		now,
		landlordID,
	).Error
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET is_active = ?, updated_at = ? WHERE id = ?`,
		true,
		now,
		id,
	).Error
}

func (r *repo) ListByLandlord(ctx context.Context, db *gorm.DB, landlordID string) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE landlord_id = ? ORDER BY created_at DESC`,
		landlordID,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
