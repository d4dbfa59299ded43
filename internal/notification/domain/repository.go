package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertNotification(ctx context.Context, db *gorm.DB, notification *Notification) error
	ExistsNotificationID(ctx context.Context, db *gorm.DB, notificationID string) (bool, error)
	FindNotification(ctx context.Context, db *gorm.DB, notificationID string) (*Notification, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, notificationID, userID string, now time.Time) (bool, error)

	InsertOutbox(ctx context.Context, db *gorm.DB, entry *OutboxEntry) error
	// ClaimDue returns due pending entries and pushes their next_attempt_at
	// to leaseUntil in the same transaction, so another dispatcher polling
	// the table skips them until the lease expires or an outcome lands.
	ClaimDue(ctx context.Context, db *gorm.DB, now, leaseUntil time.Time, limit int) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	Reschedule(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, nextAttemptAt time.Time, lastError string, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, now time.Time) error
	CountPendingOutbox(ctx context.Context, db *gorm.DB) (int64, error)

	UpsertSubscription(ctx context.Context, db *gorm.DB, subscription *PushSubscription) error
	ListSubscriptionsByUser(ctx context.Context, db *gorm.DB, userID string) ([]PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, db *gorm.DB, endpoint string) error
}
