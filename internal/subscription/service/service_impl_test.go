package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upkyp/upkyp/internal/clock"
	subscriptiondomain "github.com/upkyp/upkyp/internal/subscription/domain"
	subscriptionrepo "github.com/upkyp/upkyp/internal/subscription/repository"
	subscriptionservice "github.com/upkyp/upkyp/internal/subscription/service"
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

	if err := db.Exec(`CREATE TABLE subscriptions (
		id BIGINT PRIMARY KEY,
		landlord_id TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		payment_status TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		request_reference_number TEXT NOT NULL UNIQUE,
		amount_paid NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	return db
}

func newSubscriptionService(t *testing.T, db *gorm.DB, clk clock.Clock) subscriptiondomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  subscriptionrepo.Provide(),
	})
}

func activeCount(t *testing.T, db *gorm.DB, landlordID string) int64 {
	t.Helper()

	var count int64
	if err := db.Raw(
		`SELECT COUNT(1) FROM subscriptions WHERE landlord_id = ? AND is_active`,
		landlordID,
	).Scan(&count).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	return count
}

func TestRecordPaymentStatusActivatesPlan(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	resp, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1",
		LandlordID:      "L1",
		PlanName:        "premium",
		Amount:          decimal.NewFromInt(999),
		Status:          "success",
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PaymentStatusPaid, resp.PaymentStatus)
	assert.False(t, resp.Replayed)

	active, err := svc.GetActive(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "premium", active.PlanName)
	assert.True(t, active.EndDate.UTC().Equal(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)))
}

func TestRecordPaymentStatusReplayKeepsFirstOutcome(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	first, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1",
		LandlordID:      "L1",
		PlanName:        "premium",
		Amount:          decimal.NewFromInt(999),
		Status:          "success",
	})
	require.NoError(t, err)

	// Redelivery with a contradicting status must not change anything.
	second, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1",
		LandlordID:      "L1",
		PlanName:        "premium",
		Amount:          decimal.NewFromInt(999),
		Status:          "failed",
	})
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM subscriptions WHERE request_reference_number = 'REF-1'`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordPaymentStatusKeepsOneActivePerLandlord(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	statuses := []string{"success", "success", "failed", "success", "cancelled"}
	for i, status := range statuses {
		_, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
			ReferenceNumber: fmt.Sprintf("REF-%d", i),
			LandlordID:      "L1",
			PlanName:        "premium",
			Amount:          decimal.NewFromInt(999),
			Status:          status,
		})
		require.NoError(t, err)
		require.LessOrEqual(t, activeCount(t, db, "L1"), int64(1))
		clk.Advance(time.Hour)
	}
}

func TestFailedRenewalKeepsValidPriorPlanActive(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	_, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1",
		LandlordID:      "L1",
		PlanName:        "premium",
		Amount:          decimal.NewFromInt(999),
		Status:          "success",
	})
	require.NoError(t, err)

	// Renewal attempt two weeks in, still inside the prior plan's window.
	clk.Advance(14 * 24 * time.Hour)

	resp, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-2",
		LandlordID:      "L1",
		PlanName:        "premium",
		Amount:          decimal.NewFromInt(999),
		Status:          "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PaymentStatusFailed, resp.PaymentStatus)

	active, err := svc.GetActive(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "REF-1", active.RequestReferenceNumber)
	assert.Equal(t, int64(1), activeCount(t, db, "L1"))

	// Both attempts are recorded.
	subs, err := svc.List(ctx, "L1")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestRecordPaymentStatusDefaultsToSuccess(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	resp, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1",
		LandlordID:      "L1",
		PlanName:        "basic",
		Amount:          decimal.NewFromInt(499),
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PaymentStatusPaid, resp.PaymentStatus)
}

func TestRecordPaymentStatusValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newSubscriptionService(t, db, clk)

	_, err := svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		LandlordID: "L1", PlanName: "basic",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidReference)

	_, err = svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1", PlanName: "basic",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidLandlord)

	_, err = svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1", LandlordID: "L1",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidPlan)

	_, err = svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1", LandlordID: "L1", PlanName: "basic", Status: "maybe",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStatus)

	_, err = svc.RecordPaymentStatus(ctx, subscriptiondomain.PaymentStatusRequest{
		ReferenceNumber: "REF-1", LandlordID: "L1", PlanName: "basic",
		Amount: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidAmount)

	_, err = svc.GetActive(ctx, "L-none")
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}
