package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/upkyp/upkyp/internal/clock"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	"github.com/upkyp/upkyp/internal/observability/metrics"
	"github.com/upkyp/upkyp/pkg/keygen"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    notificationdomain.Repository
	keys    *keygen.Allocator
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    notificationdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("notification.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		keys:    keygen.New("ntf"),
		metrics: p.Metrics,
	}
}

func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, input notificationdomain.EnqueueInput) (notificationdomain.Notification, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return notificationdomain.Notification{}, notificationdomain.ErrInvalidUser
	}

	notificationID, err := s.keys.Allocate(ctx, func(ctx context.Context, key string) (bool, error) {
		return s.repo.ExistsNotificationID(ctx, tx, key)
	})
	if err != nil {
		return notificationdomain.Notification{}, err
	}

	now := s.clock.Now()
	notification := notificationdomain.Notification{
		ID:             s.genID.Generate(),
		NotificationID: notificationID,
		UserID:         userID,
		Title:          input.Title,
		Body:           input.Body,
		URL:            input.URL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertNotification(ctx, tx, &notification); err != nil {
		return notificationdomain.Notification{}, err
	}

	entry := notificationdomain.OutboxEntry{
		ID:             s.genID.Generate(),
		NotificationID: notificationID,
		Status:         notificationdomain.OutboxStatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertOutbox(ctx, tx, &entry); err != nil {
		return notificationdomain.Notification{}, err
	}

	s.metrics.RecordNotificationEnqueued(ctx, input.Topic)
	s.log.Info("notification enqueued",
		zap.String("notification_id", notificationID),
		zap.String("user_id", userID),
		zap.String("topic", input.Topic),
	)
	return notification, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]notificationdomain.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, notificationdomain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, s.db, userID)
}

func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	notificationID = strings.TrimSpace(notificationID)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return notificationdomain.ErrInvalidUser
	}
	if notificationID == "" {
		return notificationdomain.ErrNotificationNotFound
	}

	updated, err := s.repo.MarkRead(ctx, s.db, notificationID, userID, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return notificationdomain.ErrNotificationNotFound
	}
	return nil
}

func (s *Service) RegisterSubscription(ctx context.Context, input notificationdomain.SubscriptionInput) error {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return notificationdomain.ErrInvalidUser
	}
	endpoint := strings.TrimSpace(input.Endpoint)
	if endpoint == "" {
		return notificationdomain.ErrInvalidEndpoint
	}

	now := s.clock.Now()
	return s.repo.UpsertSubscription(ctx, s.db, &notificationdomain.PushSubscription{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dh:    input.P256dh,
		Auth:      input.Auth,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
