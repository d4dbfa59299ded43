package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upkyp/upkyp/internal/clock"
	"github.com/upkyp/upkyp/internal/config"
	leasedomain "github.com/upkyp/upkyp/internal/lease/domain"
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

	genID           *snowflake.Node
	clock           clock.Clock
	repo            leasedomain.Repository
	notificationSvc notificationdomain.Service
	policy          *config.LeasePolicyHolder
	agreementKeys   *keygen.Allocator
	renewalKeys     *keygen.Allocator
	metrics         *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            leasedomain.Repository
	NotificationSvc notificationdomain.Service
	Policy          *config.LeasePolicyHolder
	Metrics         *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) leasedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("lease.service"),

		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		notificationSvc: p.NotificationSvc,
		policy:          p.Policy,
		agreementKeys:   keygen.New("lease"),
		renewalKeys:     keygen.New("rnw"),
		metrics:         p.Metrics,
	}
}

func (s *Service) RequestRenewal(ctx context.Context, agreementID string) (leasedomain.RenewalRequest, error) {
	agreementID = strings.TrimSpace(agreementID)
	if agreementID == "" {
		return leasedomain.RenewalRequest{}, leasedomain.ErrInvalidAgreement
	}

	var renewal leasedomain.RenewalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agreement, err := s.repo.FindAgreement(ctx, tx, agreementID)
		if err != nil {
			return err
		}
		if agreement == nil {
			return leasedomain.ErrAgreementNotFound
		}
		if agreement.Status != leasedomain.AgreementStatusActive {
			return leasedomain.ErrAgreementExpired
		}

		renewalID, err := s.renewalKeys.Allocate(ctx, func(ctx context.Context, key string) (bool, error) {
			return s.repo.ExistsRenewalID(ctx, tx, key)
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		renewal = leasedomain.RenewalRequest{
			ID:          s.genID.Generate(),
			RenewalID:   renewalID,
			AgreementID: agreement.AgreementID,
			TenantID:    agreement.TenantID,
			LandlordID:  agreement.LandlordID,
			Status:      leasedomain.RenewalStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.InsertRenewal(ctx, tx, &renewal)
	})
	if err != nil {
		return leasedomain.RenewalRequest{}, err
	}

	s.log.Info("renewal requested",
		zap.String("renewal_id", renewal.RenewalID),
		zap.String("agreement_id", agreementID),
	)
	return renewal, nil
}

func (s *Service) UpdateRenewalStatus(ctx context.Context, renewalID string, status string) (leasedomain.Decision, error) {
	renewalID = strings.TrimSpace(renewalID)
	if renewalID == "" {
		return leasedomain.Decision{}, leasedomain.ErrRenewalNotFound
	}
	target, err := parseDecision(status)
	if err != nil {
		return leasedomain.Decision{}, err
	}

	var decision leasedomain.Decision
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		renewal, err := s.repo.FindRenewalForUpdate(ctx, tx, renewalID)
		if err != nil {
			return err
		}
		if renewal == nil {
			return leasedomain.ErrRenewalNotFound
		}

		if renewal.Status != leasedomain.RenewalStatusPending {
			// Repeat decisions are no-ops, even contradicting ones.
			decision = leasedomain.Decision{
				RenewalID:      renewalID,
				Status:         renewal.Status,
				AlreadyDecided: true,
			}
			return nil
		}

		now := s.clock.Now()
		if err := s.repo.UpdateRenewalStatus(ctx, tx, renewalID, target, now); err != nil {
			return err
		}
		decision = leasedomain.Decision{RenewalID: renewalID, Status: target}

		if target != leasedomain.RenewalStatusApproved {
			return nil
		}

		old, err := s.repo.FindAgreementForUpdate(ctx, tx, renewal.AgreementID)
		if err != nil {
			return err
		}
		if old == nil {
			return leasedomain.ErrAgreementNotFound
		}

		if err := s.repo.ExpireAgreement(ctx, tx, old.AgreementID, now); err != nil {
			return err
		}

		newAgreementID, err := s.agreementKeys.Allocate(ctx, func(ctx context.Context, key string) (bool, error) {
			return s.repo.ExistsAgreementID(ctx, tx, key)
		})
		if err != nil {
			return err
		}

		successor := s.cloneAgreement(old, newAgreementID, now)
		if err := s.repo.InsertAgreement(ctx, tx, &successor); err != nil {
			return err
		}
		decision.NewAgreementID = newAgreementID

		if _, err := s.notificationSvc.Enqueue(ctx, tx, notificationdomain.EnqueueInput{
			UserID: old.TenantID,
			Topic:  "renewal_approved",
			Title:  "Lease renewed",
			Body: fmt.Sprintf("Your lease renewal was approved. The new term runs %s to %s.",
				successor.StartDate.Format("2006-01-02"),
				successor.EndDate.Format("2006-01-02"),
			),
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return leasedomain.Decision{}, err
	}

	if !decision.AlreadyDecided {
		s.metrics.RecordRenewalDecision(ctx, string(decision.Status))
	}
	s.log.Info("renewal decision recorded",
		zap.String("renewal_id", renewalID),
		zap.String("status", string(decision.Status)),
		zap.String("new_agreement_id", decision.NewAgreementID),
		zap.Bool("already_decided", decision.AlreadyDecided),
	)
	return decision, nil
}

func (s *Service) GetAgreement(ctx context.Context, agreementID string) (leasedomain.LeaseAgreement, error) {
	agreement, err := s.repo.FindAgreement(ctx, s.db, strings.TrimSpace(agreementID))
	if err != nil {
		return leasedomain.LeaseAgreement{}, err
	}
	if agreement == nil {
		return leasedomain.LeaseAgreement{}, leasedomain.ErrAgreementNotFound
	}
	return *agreement, nil
}

func (s *Service) ListRenewals(ctx context.Context, landlordID string) ([]leasedomain.RenewalRequest, error) {
	landlordID = strings.TrimSpace(landlordID)
	if landlordID == "" {
		return nil, leasedomain.ErrInvalidLandlord
	}
	return s.repo.ListRenewalsByLandlord(ctx, s.db, landlordID)
}

// cloneAgreement builds the successor lease: same parties and rent, term
// shifted forward by the old term's length, financial terms carried over
// with any missing values filled from the current lease policy.
func (s *Service) cloneAgreement(old *leasedomain.LeaseAgreement, agreementID string, now time.Time) leasedomain.LeaseAgreement {
	policy := s.policy.Get()
	duration := old.EndDate.Sub(old.StartDate)

	oldID := old.AgreementID
	return leasedomain.LeaseAgreement{
		ID:              s.genID.Generate(),
		AgreementID:     agreementID,
		UnitID:          old.UnitID,
		TenantID:        old.TenantID,
		LandlordID:      old.LandlordID,
		Status:          leasedomain.AgreementStatusActive,
		StartDate:       old.EndDate,
		EndDate:         old.EndDate.Add(duration),
		MonthlyRent:     old.MonthlyRent,
		DepositMonths:   intOrDefault(old.DepositMonths, policy.DepositMonths),
		AdvanceMonths:   intOrDefault(old.AdvanceMonths, policy.AdvanceMonths),
		RentDueDay:      intOrDefault(old.RentDueDay, policy.RentDueDay),
		GracePeriodDays: intOrDefault(old.GracePeriodDays, policy.GracePeriodDays),
		PenaltyPercent:  decimalOrDefault(old.PenaltyPercent, policy.PenaltyPercent),
		IsRenewalOf:     &oldID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func parseDecision(value string) (leasedomain.RenewalStatus, error) {
	status := leasedomain.RenewalStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case leasedomain.RenewalStatusApproved, leasedomain.RenewalStatusDeclined:
		return status, nil
	default:
		return "", leasedomain.ErrInvalidStatus
	}
}

func intOrDefault(value *int, def int) *int {
	if value != nil {
		v := *value
		return &v
	}
	return &def
}

func decimalOrDefault(value *decimal.Decimal, def float64) *decimal.Decimal {
	if value != nil {
		v := *value
		return &v
	}
	d := decimal.NewFromFloat(def)
	return &d
}
