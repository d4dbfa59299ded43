package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// EnqueueInput describes a notification to record and deliver. Topic is a
// short machine name for the event that produced it (metrics only, never
// shown to the user).
type EnqueueInput struct {
	UserID string
	Topic  string
	Title  string
	Body   string
	URL    string
}

type SubscriptionInput struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// PushPayload is the body sent to a push endpoint.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Pusher delivers a payload to a single push subscription. A delivery to an
// endpoint that no longer exists returns ErrSubscriptionGone so the caller
// can prune it.
type Pusher interface {
	Push(ctx context.Context, subscription PushSubscription, payload PushPayload) error
}

type Service interface {
	// Enqueue records a notification and its outbox row inside the caller's
	// transaction, so the notification commits or rolls back with the state
	// change that produced it.
	Enqueue(ctx context.Context, tx *gorm.DB, input EnqueueInput) (Notification, error)
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	RegisterSubscription(ctx context.Context, input SubscriptionInput) error
}

var (
	ErrInvalidUser          = errors.New("invalid_user_id")
	ErrInvalidEndpoint      = errors.New("invalid_endpoint")
	ErrNotificationNotFound = errors.New("notification_not_found")
	ErrSubscriptionGone     = errors.New("subscription_gone")
)
