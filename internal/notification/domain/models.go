package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OutboxStatus tracks delivery progress of a queued notification.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusFailed    OutboxStatus = "failed"
)

type Notification struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey"`
	NotificationID string       `gorm:"column:notification_id;uniqueIndex"`
	UserID         string       `gorm:"column:user_id"`
	Title          string       `gorm:"column:title"`
	Body           string       `gorm:"column:body"`
	URL            string       `gorm:"column:url"`
	IsRead         bool         `gorm:"column:is_read"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// OutboxEntry is a pending delivery. The notification row is the durable
// record; the outbox row only exists until delivery succeeds or is given up.
type OutboxEntry struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey"`
	NotificationID string       `gorm:"column:notification_id"`
	Status         OutboxStatus `gorm:"column:status"`
	Attempts       int          `gorm:"column:attempts"`
	NextAttemptAt  time.Time    `gorm:"column:next_attempt_at"`
	LastError      string       `gorm:"column:last_error"`
	DeliveredAt    *time.Time   `gorm:"column:delivered_at"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
}

func (OutboxEntry) TableName() string {
	return "notification_outbox"
}

type PushSubscription struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey"`
	UserID    string       `gorm:"column:user_id"`
	Endpoint  string       `gorm:"column:endpoint;uniqueIndex"`
	P256dh    string       `gorm:"column:p256dh"`
	Auth      string       `gorm:"column:auth"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
