package service

import (
	"context"
	"errors"
	"time"

	"github.com/upkyp/upkyp/internal/clock"
	"github.com/upkyp/upkyp/internal/config"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	obsmetrics "github.com/upkyp/upkyp/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher drains the notification outbox: it claims due pending entries,
// pushes each notification to every registered subscription of the target
// user, and reschedules or dead-letters entries that cannot be delivered.
type Dispatcher struct {
	db  *gorm.DB
	log *zap.Logger

	clock  clock.Clock
	repo   notificationdomain.Repository
	pusher notificationdomain.Pusher

	pollInterval time.Duration
	claimLease   time.Duration
	batchSize    int
	maxAttempts  int
}

type DispatcherParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
	Repo   notificationdomain.Repository
	Pusher notificationdomain.Pusher
}

func NewDispatcher(p DispatcherParam) *Dispatcher {
	pollInterval := time.Duration(p.Config.OutboxPollSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	batchSize := p.Config.OutboxBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxAttempts := p.Config.OutboxMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	claimLease := 2 * pollInterval
	if claimLease < time.Minute {
		claimLease = time.Minute
	}

	return &Dispatcher{
		db:  p.DB,
		log: p.Log.Named("notification.dispatcher"),

		clock:  p.Clock,
		repo:   p.Repo,
		pusher: p.Pusher,

		pollInterval: pollInterval,
		claimLease:   claimLease,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
	}
}

func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Warn("outbox dispatch failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce processes one batch and returns how many entries it delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	start := time.Now()
	outboxMetrics := obsmetrics.Outbox()
	outboxMetrics.IncDispatchRun()
	defer func() {
		outboxMetrics.ObserveDispatchDuration(time.Since(start))
	}()

	now := d.clock.Now()
	var entries []notificationdomain.OutboxEntry
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entries, err = d.repo.ClaimDue(ctx, tx, now, now.Add(d.claimLease), d.batchSize)
		return err
	})
	if err != nil {
		outboxMetrics.IncDispatchError(err)
		return 0, err
	}

	delivered := 0
	var dispatchErr error
	for _, entry := range entries {
		if ctx.Err() != nil {
			dispatchErr = errors.Join(dispatchErr, ctx.Err())
			break
		}
		if err := d.dispatchEntry(ctx, entry); err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		delivered++
	}

	if pending, err := d.repo.CountPendingOutbox(ctx, d.db); err == nil {
		outboxMetrics.SetBacklog(pending)
	}
	return delivered, dispatchErr
}

func (d *Dispatcher) dispatchEntry(ctx context.Context, entry notificationdomain.OutboxEntry) error {
	outboxMetrics := obsmetrics.Outbox()

	notification, err := d.repo.FindNotification(ctx, d.db, entry.NotificationID)
	if err != nil {
		outboxMetrics.IncDispatchError(err)
		return err
	}
	if notification == nil {
		// Orphaned entry, nothing to deliver.
		return d.repo.MarkFailed(ctx, d.db, entry.ID, entry.Attempts+1, "notification row missing", d.clock.Now())
	}

	subscriptions, err := d.repo.ListSubscriptionsByUser(ctx, d.db, notification.UserID)
	if err != nil {
		outboxMetrics.IncDispatchError(err)
		return err
	}

	payload := notificationdomain.PushPayload{
		Title: notification.Title,
		Body:  notification.Body,
		URL:   notification.URL,
	}

	var pushErr error
	for _, subscription := range subscriptions {
		err := d.pusher.Push(ctx, subscription, payload)
		if err == nil {
			continue
		}
		if errors.Is(err, notificationdomain.ErrSubscriptionGone) {
			if err := d.repo.DeleteSubscriptionByEndpoint(ctx, d.db, subscription.Endpoint); err != nil {
				pushErr = errors.Join(pushErr, err)
				continue
			}
			outboxMetrics.IncPruned()
			d.log.Info("pruned dead push subscription",
				zap.String("user_id", notification.UserID),
				zap.String("endpoint", subscription.Endpoint),
			)
			continue
		}
		pushErr = errors.Join(pushErr, err)
	}

	now := d.clock.Now()
	if pushErr == nil {
		// No live subscriptions counts as delivered; the in-app row remains.
		if err := d.repo.MarkDelivered(ctx, d.db, entry.ID, now); err != nil {
			outboxMetrics.IncDispatchError(err)
			return err
		}
		outboxMetrics.IncDelivered()
		return nil
	}

	attempts := entry.Attempts + 1
	if attempts >= d.maxAttempts {
		if err := d.repo.MarkFailed(ctx, d.db, entry.ID, attempts, pushErr.Error(), now); err != nil {
			outboxMetrics.IncDispatchError(err)
			return errors.Join(pushErr, err)
		}
		outboxMetrics.IncDeadLettered()
		d.log.Warn("notification dead-lettered",
			zap.String("notification_id", entry.NotificationID),
			zap.Int("attempts", attempts),
			zap.Error(pushErr),
		)
		return pushErr
	}

	if err := d.repo.Reschedule(ctx, d.db, entry.ID, attempts, now.Add(retryDelay(attempts)), pushErr.Error(), now); err != nil {
		outboxMetrics.IncDispatchError(err)
		return errors.Join(pushErr, err)
	}
	outboxMetrics.IncRetried()
	return pushErr
}

// retryDelay doubles per attempt, capped at five minutes.
func retryDelay(attempts int) time.Duration {
	delay := time.Duration(1<<uint(attempts)) * time.Second
	if delay > 5*time.Minute {
		return 5 * time.Minute
	}
	return delay
}
