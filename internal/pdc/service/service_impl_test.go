package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upkyp/upkyp/internal/clock"
	notificationrepo "github.com/upkyp/upkyp/internal/notification/repository"
	notificationservice "github.com/upkyp/upkyp/internal/notification/service"
	pdcdomain "github.com/upkyp/upkyp/internal/pdc/domain"
	pdcrepo "github.com/upkyp/upkyp/internal/pdc/repository"
	pdcservice "github.com/upkyp/upkyp/internal/pdc/service"
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
		`CREATE TABLE post_dated_checks (
			id BIGINT PRIMARY KEY,
			pdc_id TEXT NOT NULL UNIQUE,
			agreement_id TEXT NOT NULL,
			check_number TEXT NOT NULL DEFAULT '',
			amount NUMERIC NOT NULL DEFAULT 0,
			due_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			cleared_at TIMESTAMP,
			bounced_at TIMESTAMP,
			replaced_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
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
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE units (
			id BIGINT PRIMARY KEY,
			unit_id TEXT NOT NULL UNIQUE,
			property_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			monthly_rent NUMERIC NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE properties (
			id BIGINT PRIMARY KEY,
			property_id TEXT NOT NULL UNIQUE,
			landlord_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT ''
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

func seedLease(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Exec(
		`INSERT INTO properties (id, property_id, landlord_id, name) VALUES (1, 'P1', 'L1', 'Sunrise Tower')`,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO units (id, unit_id, property_id, name, monthly_rent) VALUES (1, 'U1', 'P1', '4B', 15000)`,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO lease_agreements (
			id, agreement_id, unit_id, tenant_id, landlord_id, status,
			start_date, end_date, monthly_rent, created_at, updated_at
		) VALUES (1, 'A1', 'U1', 'T1', 'L1', 'active', '2026-01-01', '2026-12-31', 15000, '2026-01-01', '2026-01-01')`,
	).Error)
}

func newPDCService(t *testing.T, db *gorm.DB, clk clock.Clock) pdcdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(4)
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

	return pdcservice.NewService(pdcservice.ServiceParam{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clk,
		Repo:            pdcrepo.Provide(),
		NotificationSvc: notificationSvc,
	})
}

func registerCheck(t *testing.T, svc pdcdomain.Service) pdcdomain.PostDatedCheck {
	t.Helper()

	check, err := svc.Create(context.Background(), pdcdomain.CreateCheckRequest{
		AgreementID: "A1",
		CheckNumber: "000123",
		Amount:      decimal.NewFromInt(15000),
		DueDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return check
}

func TestCreateRegistersPendingCheck(t *testing.T) {
	db := setupTestDB(t)
	seedLease(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newPDCService(t, db, clk)

	check := registerCheck(t, svc)
	assert.True(t, strings.HasPrefix(check.PDCID, "pdc_"))
	assert.Equal(t, pdcdomain.PDCStatusPending, check.Status)
	assert.Nil(t, check.ClearedAt)
}

func TestClearedStampsTimestampAndNotifiesTenant(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedLease(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newPDCService(t, db, clk)

	check := registerCheck(t, svc)
	clk.Advance(24 * time.Hour)

	updated, err := svc.UpdateStatus(ctx, check.PDCID, "cleared")
	require.NoError(t, err)
	assert.Equal(t, pdcdomain.PDCStatusCleared, updated.Status)
	require.NotNil(t, updated.ClearedAt)
	assert.Nil(t, updated.BouncedAt)
	assert.Nil(t, updated.ReplacedAt)

	var notification struct {
		UserID string
		Body   string
	}
	require.NoError(t, db.Raw(`SELECT user_id, body FROM notifications LIMIT 1`).Scan(&notification).Error)
	assert.Equal(t, "T1", notification.UserID)
	assert.Contains(t, notification.Body, "15000.00")

	var pending int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM notification_outbox WHERE status = 'pending'`).Scan(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestCorrectionPreservesEarlierTimestamps(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedLease(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newPDCService(t, db, clk)

	check := registerCheck(t, svc)

	cleared, err := svc.UpdateStatus(ctx, check.PDCID, "cleared")
	require.NoError(t, err)
	require.NotNil(t, cleared.ClearedAt)
	clearedAt := *cleared.ClearedAt

	clk.Advance(48 * time.Hour)

	// Bank correction: the cleared check turns out to have bounced.
	bounced, err := svc.UpdateStatus(ctx, check.PDCID, "bounced")
	require.NoError(t, err)
	assert.Equal(t, pdcdomain.PDCStatusBounced, bounced.Status)
	require.NotNil(t, bounced.BouncedAt)
	require.NotNil(t, bounced.ClearedAt)
	assert.True(t, bounced.ClearedAt.UTC().Equal(clearedAt.UTC()))
	assert.True(t, bounced.BouncedAt.After(*bounced.ClearedAt))
}

func TestIllegalTransitionsAreRejected(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedLease(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newPDCService(t, db, clk)

	check := registerCheck(t, svc)

	// Self-transition.
	_, err := svc.UpdateStatus(ctx, check.PDCID, "pending")
	assert.ErrorIs(t, err, pdcdomain.ErrIllegalTransition)

	_, err = svc.UpdateStatus(ctx, check.PDCID, "bounced")
	require.NoError(t, err)

	// No way back to pending once terminal.
	_, err = svc.UpdateStatus(ctx, check.PDCID, "pending")
	assert.ErrorIs(t, err, pdcdomain.ErrIllegalTransition)

	// A rejected transition leaves the row untouched.
	current, err := svc.GetByID(ctx, check.PDCID)
	require.NoError(t, err)
	assert.Equal(t, pdcdomain.PDCStatusBounced, current.Status)
}

func TestUpdateStatusValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedLease(t, db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := newPDCService(t, db, clk)

	_, err := svc.UpdateStatus(ctx, "pdc_missing", "cleared")
	assert.ErrorIs(t, err, pdcdomain.ErrCheckNotFound)

	check := registerCheck(t, svc)
	_, err = svc.UpdateStatus(ctx, check.PDCID, "shredded")
	assert.ErrorIs(t, err, pdcdomain.ErrInvalidStatus)

	_, err = svc.Create(ctx, pdcdomain.CreateCheckRequest{
		AgreementID: "A1",
		Amount:      decimal.Zero,
		DueDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, pdcdomain.ErrInvalidAmount)
}
