package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/upkyp/upkyp/internal/clock"
	"github.com/upkyp/upkyp/internal/observability/metrics"
	subscriptiondomain "github.com/upkyp/upkyp/internal/subscription/domain"
	"github.com/upkyp/upkyp/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTxAttempts = 3

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// RecordPaymentStatus records a payment gateway callback exactly once per
// reference number. Every attempt becomes a row; at most one row per landlord
// is active, and a failed renewal never strands a landlord whose prior plan
// is still date-valid.
func (s *Service) RecordPaymentStatus(ctx context.Context, req subscriptiondomain.PaymentStatusRequest) (subscriptiondomain.PaymentStatusResponse, error) {
	referenceNumber := strings.TrimSpace(req.ReferenceNumber)
	if referenceNumber == "" {
		return subscriptiondomain.PaymentStatusResponse{}, subscriptiondomain.ErrInvalidReference
	}
	landlordID := strings.TrimSpace(req.LandlordID)
	if landlordID == "" {
		return subscriptiondomain.PaymentStatusResponse{}, subscriptiondomain.ErrInvalidLandlord
	}
	planName := strings.TrimSpace(req.PlanName)
	if planName == "" {
		return subscriptiondomain.PaymentStatusResponse{}, subscriptiondomain.ErrInvalidPlan
	}
	if req.Amount.IsNegative() {
		return subscriptiondomain.PaymentStatusResponse{}, subscriptiondomain.ErrInvalidAmount
	}
	callbackStatus, err := parseCallbackStatus(req.Status)
	if err != nil {
		return subscriptiondomain.PaymentStatusResponse{}, err
	}

	now := s.clock.Now()
	paymentStatus, isActive := mapCallbackStatus(callbackStatus)

	// Concurrent redeliveries of the same reference race on the unique
	// index and, under SERIALIZABLE, on the date-window reads; both
	// failures settle on a clean re-run, which then reports the replay.
	var resp subscriptiondomain.PaymentStatusResponse
	err = db.TransactWithRetry(ctx, s.db, s.txOptions(), maxTxAttempts, func(tx *gorm.DB) error {
		existing, err := s.repo.FindByReferenceForUpdate(ctx, tx, referenceNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			// Webhook redelivery: report the first outcome unchanged.
			resp = subscriptiondomain.PaymentStatusResponse{
				ReferenceNumber: referenceNumber,
				PaymentStatus:   existing.PaymentStatus,
				Replayed:        true,
			}
			return nil
		}

		prior, err := s.repo.FindActiveByLandlordForUpdate(ctx, tx, landlordID)
		if err != nil {
			return err
		}
		priorStillValid := prior != nil && prior.EndDate.After(now)

		if callbackStatus == subscriptiondomain.CallbackStatusSuccess && prior != nil {
			if err := s.repo.DeactivateByLandlord(ctx, tx, landlordID, now); err != nil {
				return err
			}
		}

		attempt := subscriptiondomain.Subscription{
			ID:                     s.genID.Generate(),
			LandlordID:             landlordID,
			PlanName:               planName,
			StartDate:              now,
			EndDate:                now.AddDate(0, 1, 0),
			PaymentStatus:          paymentStatus,
			IsActive:               isActive,
			RequestReferenceNumber: referenceNumber,
			AmountPaid:             req.Amount,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := s.repo.Insert(ctx, tx, &attempt); err != nil {
			return err
		}

		if callbackStatus != subscriptiondomain.CallbackStatusSuccess && priorStillValid {
			if err := s.repo.Activate(ctx, tx, prior.ID, now); err != nil {
				return err
			}
		}

		resp = subscriptiondomain.PaymentStatusResponse{
			ReferenceNumber: referenceNumber,
			PaymentStatus:   paymentStatus,
		}
		return nil
	})
	if err != nil {
		return subscriptiondomain.PaymentStatusResponse{}, err
	}

	if !resp.Replayed {
		s.metrics.RecordPaymentCallback(ctx, string(callbackStatus))
	}
	s.log.Info("payment status recorded",
		zap.String("reference_number", referenceNumber),
		zap.String("landlord_id", landlordID),
		zap.String("payment_status", string(resp.PaymentStatus)),
		zap.Bool("replayed", resp.Replayed),
	)

	return resp, nil
}

func (s *Service) GetActive(ctx context.Context, landlordID string) (subscriptiondomain.Subscription, error) {
	landlordID = strings.TrimSpace(landlordID)
	if landlordID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidLandlord
	}

	item, err := s.repo.FindActiveByLandlord(ctx, s.db, landlordID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if item == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, landlordID string) ([]subscriptiondomain.Subscription, error) {
	landlordID = strings.TrimSpace(landlordID)
	if landlordID == "" {
		return nil, subscriptiondomain.ErrInvalidLandlord
	}
	return s.repo.ListByLandlord(ctx, s.db, landlordID)
}

// txOptions escalates to SERIALIZABLE to harden against concurrent webhook
// redelivery. SQLite transactions are serializable already and its driver
// rejects explicit isolation levels.
func (s *Service) txOptions() *sql.TxOptions {
	if s.db.Dialector.Name() == "sqlite" {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func parseCallbackStatus(value string) (subscriptiondomain.CallbackStatus, error) {
	status := strings.ToLower(strings.TrimSpace(value))
	if status == "" {
		return subscriptiondomain.CallbackStatusSuccess, nil
	}

	switch subscriptiondomain.CallbackStatus(status) {
	case subscriptiondomain.CallbackStatusSuccess,
		subscriptiondomain.CallbackStatusFailed,
		subscriptiondomain.CallbackStatusCancelled:
		return subscriptiondomain.CallbackStatus(status), nil
	default:
		return "", subscriptiondomain.ErrInvalidStatus
	}
}

func mapCallbackStatus(status subscriptiondomain.CallbackStatus) (subscriptiondomain.PaymentStatus, bool) {
	switch status {
	case subscriptiondomain.CallbackStatusFailed:
		return subscriptiondomain.PaymentStatusFailed, false
	case subscriptiondomain.CallbackStatusCancelled:
		return subscriptiondomain.PaymentStatusCancelled, false
	default:
		return subscriptiondomain.PaymentStatusPaid, true
	}
}
