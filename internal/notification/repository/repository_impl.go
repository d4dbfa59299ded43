package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notificationdomain.Repository {
	return &repo{}
}

const notificationColumns = `id, notification_id, user_id, title, body, url, is_read, created_at, updated_at`

const outboxColumns = `id, notification_id, status, attempts, next_attempt_at, last_error, delivered_at, created_at, updated_at`

func (r *repo) InsertNotification(ctx context.Context, db *gorm.DB, notification *notificationdomain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (
			id, notification_id, user_id, title, body, url, is_read, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID,
		notification.NotificationID,
		notification.UserID,
		notification.Title,
		notification.Body,
		notification.URL,
		notification.IsRead,
		notification.CreatedAt,
		notification.UpdatedAt,
	).Error
}

func (r *repo) ExistsNotificationID(ctx context.Context, db *gorm.DB, notificationID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM notifications WHERE notification_id = ?`,
		notificationID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindNotification(ctx context.Context, db *gorm.DB, notificationID string) (*notificationdomain.Notification, error) {
	var notification notificationdomain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications WHERE notification_id = ? LIMIT 1`,
		notificationID,
	).Scan(&notification).Error
	if err != nil {
		return nil, err
	}
	if notification.ID == 0 {
		return nil, nil
	}
	return &notification, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]notificationdomain.Notification, error) {
	var notifications []notificationdomain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	).Scan(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, notificationID, userID string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET is_read = ?, updated_at = ? WHERE notification_id = ? AND user_id = ?`,
		true,
		now,
		notificationID,
		userID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertOutbox(ctx context.Context, db *gorm.DB, entry *notificationdomain.OutboxEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_outbox (
			id, notification_id, status, attempts, next_attempt_at, last_error, delivered_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.NotificationID,
		entry.Status,
		entry.Attempts,
		entry.NextAttemptAt,
		entry.LastError,
		entry.DeliveredAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) ClaimDue(ctx context.Context, db *gorm.DB, now, leaseUntil time.Time, limit int) ([]notificationdomain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + `
	 FROM notification_outbox
	 WHERE status = ? AND next_attempt_at <= ?
	 ORDER BY next_attempt_at ASC
	 LIMIT ?`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}

	var entries []notificationdomain.OutboxEntry
	err := db.WithContext(ctx).Raw(query, notificationdomain.OutboxStatusPending, now, limit).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	// Lease the claimed rows past the row lock. Delivery outcomes overwrite
	// next_attempt_at; a crashed claim becomes due again at lease expiry.
	ids := make([]snowflake.ID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	err = db.WithContext(ctx).Exec(
		`UPDATE notification_outbox SET next_attempt_at = ?, updated_at = ? WHERE id IN ?`,
		leaseUntil,
		now,
		ids,
	).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		 SET status = ?, delivered_at = ?, last_error = '', updated_at = ?
		 WHERE id = ?`,
		notificationdomain.OutboxStatusDelivered,
		now,
		now,
		id,
	).Error
}

func (r *repo) Reschedule(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, nextAttemptAt time.Time, lastError string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		 SET attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		attempts,
		nextAttemptAt,
		lastError,
		now,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, attempts int, lastError string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_outbox
		 SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		notificationdomain.OutboxStatusFailed,
		attempts,
		lastError,
		now,
		id,
	).Error
}

func (r *repo) CountPendingOutbox(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM notification_outbox WHERE status = ?`,
		notificationdomain.OutboxStatusPending,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpsertSubscription(ctx context.Context, db *gorm.DB, subscription *notificationdomain.PushSubscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO push_subscriptions (
			id, user_id, endpoint, p256dh, auth, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			updated_at = EXCLUDED.updated_at`,
		subscription.ID,
		subscription.UserID,
		subscription.Endpoint,
		subscription.P256dh,
		subscription.Auth,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) ListSubscriptionsByUser(ctx context.Context, db *gorm.DB, userID string) ([]notificationdomain.PushSubscription, error) {
	var subscriptions []notificationdomain.PushSubscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, endpoint, p256dh, auth, created_at, updated_at
		 FROM push_subscriptions WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) DeleteSubscriptionByEndpoint(ctx context.Context, db *gorm.DB, endpoint string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM push_subscriptions WHERE endpoint = ?`,
		endpoint,
	).Error
}
