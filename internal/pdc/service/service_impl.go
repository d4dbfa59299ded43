package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/upkyp/upkyp/internal/clock"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	"github.com/upkyp/upkyp/internal/observability/metrics"
	pdcdomain "github.com/upkyp/upkyp/internal/pdc/domain"
	"github.com/upkyp/upkyp/pkg/keygen"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clock           clock.Clock
	repo            pdcdomain.Repository
	notificationSvc notificationdomain.Service
	keys            *keygen.Allocator
	metrics         *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            pdcdomain.Repository
	NotificationSvc notificationdomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) pdcdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("pdc.service"),

		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		notificationSvc: p.NotificationSvc,
		keys:            keygen.New("pdc"),
		metrics:         p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req pdcdomain.CreateCheckRequest) (pdcdomain.PostDatedCheck, error) {
	agreementID := strings.TrimSpace(req.AgreementID)
	if agreementID == "" {
		return pdcdomain.PostDatedCheck{}, pdcdomain.ErrInvalidAgreement
	}
	if !req.Amount.IsPositive() {
		return pdcdomain.PostDatedCheck{}, pdcdomain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() {
		return pdcdomain.PostDatedCheck{}, pdcdomain.ErrInvalidDueDate
	}

	var check pdcdomain.PostDatedCheck
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pdcID, err := s.keys.Allocate(ctx, func(ctx context.Context, key string) (bool, error) {
			return s.repo.ExistsPDCID(ctx, tx, key)
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		check = pdcdomain.PostDatedCheck{
			ID:          s.genID.Generate(),
			PDCID:       pdcID,
			AgreementID: agreementID,
			CheckNumber: strings.TrimSpace(req.CheckNumber),
			Amount:      req.Amount,
			DueDate:     req.DueDate,
			Status:      pdcdomain.PDCStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.Insert(ctx, tx, &check)
	})
	if err != nil {
		return pdcdomain.PostDatedCheck{}, err
	}

	s.log.Info("post-dated check registered",
		zap.String("pdc_id", check.PDCID),
		zap.String("agreement_id", agreementID),
	)
	return check, nil
}

func (s *Service) UpdateStatus(ctx context.Context, pdcID string, status string) (pdcdomain.PostDatedCheck, error) {
	pdcID = strings.TrimSpace(pdcID)
	if pdcID == "" {
		return pdcdomain.PostDatedCheck{}, pdcdomain.ErrCheckNotFound
	}
	target, err := parseStatus(status)
	if err != nil {
		return pdcdomain.PostDatedCheck{}, err
	}

	var (
		updated pdcdomain.PostDatedCheck
		from    pdcdomain.PDCStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		check, err := s.repo.FindByPDCIDForUpdate(ctx, tx, pdcID)
		if err != nil {
			return err
		}
		if check == nil {
			return pdcdomain.ErrCheckNotFound
		}
		from = check.Status

		if !pdcdomain.CanTransition(check.Status, target) {
			return pdcdomain.ErrIllegalTransition
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, pdcID, target, now); err != nil {
			return err
		}

		if target == pdcdomain.PDCStatusCleared {
			checkContext, err := s.repo.FindContext(ctx, tx, pdcID)
			if err != nil {
				return err
			}
			if checkContext != nil {
				if _, err := s.notificationSvc.Enqueue(ctx, tx, notificationdomain.EnqueueInput{
					UserID: checkContext.TenantID,
					Topic:  "check_cleared",
					Title:  "Check cleared",
					Body:   clearedBody(check, checkContext),
				}); err != nil {
					return err
				}
			}
		}

		refreshed, err := s.repo.FindByPDCID(ctx, tx, pdcID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return pdcdomain.ErrCheckNotFound
		}
		updated = *refreshed
		return nil
	})
	if err != nil {
		return pdcdomain.PostDatedCheck{}, err
	}

	s.metrics.RecordPDCTransition(ctx, string(from), string(target))
	s.log.Info("post-dated check status updated",
		zap.String("pdc_id", pdcID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, pdcID string) (pdcdomain.PostDatedCheck, error) {
	check, err := s.repo.FindByPDCID(ctx, s.db, strings.TrimSpace(pdcID))
	if err != nil {
		return pdcdomain.PostDatedCheck{}, err
	}
	if check == nil {
		return pdcdomain.PostDatedCheck{}, pdcdomain.ErrCheckNotFound
	}
	return *check, nil
}

func (s *Service) ListByAgreement(ctx context.Context, agreementID string) ([]pdcdomain.PostDatedCheck, error) {
	agreementID = strings.TrimSpace(agreementID)
	if agreementID == "" {
		return nil, pdcdomain.ErrInvalidAgreement
	}
	return s.repo.ListByAgreement(ctx, s.db, agreementID)
}

func parseStatus(value string) (pdcdomain.PDCStatus, error) {
	status := pdcdomain.PDCStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case pdcdomain.PDCStatusPending,
		pdcdomain.PDCStatusCleared,
		pdcdomain.PDCStatusBounced,
		pdcdomain.PDCStatusReplaced:
		return status, nil
	default:
		return "", pdcdomain.ErrInvalidStatus
	}
}

func clearedBody(check *pdcdomain.PostDatedCheck, checkContext *pdcdomain.CheckContext) string {
	location := checkContext.UnitName
	if checkContext.PropertyName != "" {
		location = checkContext.PropertyName + " " + checkContext.UnitName
	}
	if location == "" {
		return fmt.Sprintf("Your check for %s has cleared.", check.Amount.StringFixed(2))
	}
	return fmt.Sprintf("Your check for %s (%s) has cleared.", check.Amount.StringFixed(2), strings.TrimSpace(location))
}
