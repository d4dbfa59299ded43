package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upkyp/upkyp/internal/clock"
	"github.com/upkyp/upkyp/internal/config"
	leasedomain "github.com/upkyp/upkyp/internal/lease/domain"
	leaserepo "github.com/upkyp/upkyp/internal/lease/repository"
	leaseservice "github.com/upkyp/upkyp/internal/lease/service"
	notificationrepo "github.com/upkyp/upkyp/internal/notification/repository"
	notificationservice "github.com/upkyp/upkyp/internal/notification/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE lease_agreements (
			id BIGINT PRIMARY KEY,
			agreement_id TEXT NOT NULL UNIQUE,
			unit_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			landlord_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			monthly_rent NUMERIC NOT NULL DEFAULT 0,
			deposit_months INT,
			advance_months INT,
			rent_due_day INT,
			grace_period_days INT,
			penalty_percent NUMERIC,
			is_renewal_of TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE renewal_requests (
			id BIGINT PRIMARY KEY,
			renewal_id TEXT NOT NULL UNIQUE,
			agreement_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			landlord_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			decided_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE notifications (
			id BIGINT PRIMARY KEY,
			notification_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE notification_outbox (
			id BIGINT PRIMARY KEY,
			notification_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMP NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			delivered_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	return db
}

func seedAgreement(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Exec(
		`INSERT INTO lease_agreements (
			id, agreement_id, unit_id, tenant_id, landlord_id, status,
			start_date, end_date, monthly_rent, deposit_months, advance_months,
			rent_due_day, grace_period_days, penalty_percent, is_renewal_of,
			created_at, updated_at
		) VALUES (
			1, 'A1', 'U1', 'T1', 'L1', 'active',
			'2026-01-01 00:00:00+00:00', '2027-01-01 00:00:00+00:00', 15000, 2, NULL,
			NULL, NULL, NULL, NULL,
			'2026-01-01 00:00:00+00:00', '2026-01-01 00:00:00+00:00'
		)`,
	).Error)
}

func newLeaseService(t *testing.T, db *gorm.DB, clk clock.Clock) leasedomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	notificationSvc := notificationservice.NewService(notificationservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  notificationrepo.Provide(),
	})

	return leaseservice.NewService(leaseservice.ServiceParam{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clk,
		Repo:            leaserepo.Provide(),
		NotificationSvc: notificationSvc,
		Policy: config.NewStaticLeasePolicyHolder(config.LeasePolicy{
			DepositMonths:   1,
			AdvanceMonths:   1,
			RentDueDay:      5,
			GracePeriodDays: 7,
			PenaltyPercent:  3,
		}),
	})
}

func TestApprovalExpiresOldLeaseAndInsertsSuccessor(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedAgreement(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 11, 20, 10, 0, 0, 0, time.UTC))
	svc := newLeaseService(t, db, clk)

	renewal, err := svc.RequestRenewal(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(renewal.RenewalID, "rnw_"))
	assert.Equal(t, leasedomain.RenewalStatusPending, renewal.Status)

	decision, err := svc.UpdateRenewalStatus(ctx, renewal.RenewalID, "approved")
	require.NoError(t, err)
	assert.Equal(t, leasedomain.RenewalStatusApproved, decision.Status)
	assert.True(t, strings.HasPrefix(decision.NewAgreementID, "lease_"))
	assert.False(t, decision.AlreadyDecided)

	old, err := svc.GetAgreement(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, leasedomain.AgreementStatusExpired, old.Status)

	successor, err := svc.GetAgreement(ctx, decision.NewAgreementID)
	require.NoError(t, err)
	assert.Equal(t, leasedomain.AgreementStatusActive, successor.Status)
	assert.Equal(t, "U1", successor.UnitID)
	assert.Equal(t, "T1", successor.TenantID)
	require.NotNil(t, successor.IsRenewalOf)
	assert.Equal(t, "A1", *successor.IsRenewalOf)

	// Term shifted forward by the old term's length.
	assert.True(t, successor.StartDate.UTC().Equal(old.EndDate.UTC()))
	assert.True(t, successor.EndDate.UTC().Equal(old.EndDate.UTC().Add(old.EndDate.Sub(old.StartDate))))

	// Existing terms carried over, missing ones filled from policy.
	require.NotNil(t, successor.DepositMonths)
	assert.Equal(t, 2, *successor.DepositMonths)
	require.NotNil(t, successor.RentDueDay)
	assert.Equal(t, 5, *successor.RentDueDay)
	require.NotNil(t, successor.GracePeriodDays)
	assert.Equal(t, 7, *successor.GracePeriodDays)

	var notified int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM notifications WHERE user_id = 'T1'`).Scan(&notified).Error)
	assert.Equal(t, int64(1), notified)
}

func TestRepeatDecisionIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedAgreement(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 11, 20, 10, 0, 0, 0, time.UTC))
	svc := newLeaseService(t, db, clk)

	renewal, err := svc.RequestRenewal(ctx, "A1")
	require.NoError(t, err)

	first, err := svc.UpdateRenewalStatus(ctx, renewal.RenewalID, "approved")
	require.NoError(t, err)

	// Replaying the approval, or contradicting it, changes nothing.
	for _, status := range []string{"approved", "declined"} {
		repeat, err := svc.UpdateRenewalStatus(ctx, renewal.RenewalID, status)
		require.NoError(t, err)
		assert.True(t, repeat.AlreadyDecided)
		assert.Equal(t, first.Status, repeat.Status)
	}

	var agreements int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM lease_agreements`).Scan(&agreements).Error)
	assert.Equal(t, int64(2), agreements)

	var notified int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM notifications`).Scan(&notified).Error)
	assert.Equal(t, int64(1), notified)
}

func TestDeclineLeavesAgreementUntouched(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedAgreement(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 11, 20, 10, 0, 0, 0, time.UTC))
	svc := newLeaseService(t, db, clk)

	renewal, err := svc.RequestRenewal(ctx, "A1")
	require.NoError(t, err)

	decision, err := svc.UpdateRenewalStatus(ctx, renewal.RenewalID, "declined")
	require.NoError(t, err)
	assert.Equal(t, leasedomain.RenewalStatusDeclined, decision.Status)
	assert.Empty(t, decision.NewAgreementID)

	agreement, err := svc.GetAgreement(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, leasedomain.AgreementStatusActive, agreement.Status)

	var agreements int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM lease_agreements`).Scan(&agreements).Error)
	assert.Equal(t, int64(1), agreements)
}

func TestRenewalValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedAgreement(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 11, 20, 10, 0, 0, 0, time.UTC))
	svc := newLeaseService(t, db, clk)

	_, err := svc.RequestRenewal(ctx, "A-missing")
	assert.ErrorIs(t, err, leasedomain.ErrAgreementNotFound)

	_, err = svc.UpdateRenewalStatus(ctx, "rnw_missing", "approved")
	assert.ErrorIs(t, err, leasedomain.ErrRenewalNotFound)

	renewal, err := svc.RequestRenewal(ctx, "A1")
	require.NoError(t, err)

	_, err = svc.UpdateRenewalStatus(ctx, renewal.RenewalID, "maybe")
	assert.ErrorIs(t, err, leasedomain.ErrInvalidStatus)

	// An expired agreement cannot open a new request.
	require.NoError(t, db.Exec(`UPDATE lease_agreements SET status = 'expired' WHERE agreement_id = 'A1'`).Error)
	_, err = svc.RequestRenewal(ctx, "A1")
	assert.ErrorIs(t, err, leasedomain.ErrAgreementExpired)
}
