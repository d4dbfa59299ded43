package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/upkyp/upkyp/internal/billing/domain"
	"github.com/upkyp/upkyp/internal/clock"
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
	repo    billingdomain.Repository
	keys    *keygen.Allocator
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    billingdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billing.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		keys:    keygen.New("bill"),
		metrics: p.Metrics,
	}
}

// Upsert creates or updates the current-month bill for a unit. Replays within
// the same month replace totals and the complete charge set.
func (s *Service) Upsert(ctx context.Context, req billingdomain.UpsertBillRequest) (billingdomain.UpsertBillResponse, error) {
	unitID := strings.TrimSpace(req.UnitID)
	if unitID == "" {
		return billingdomain.UpsertBillResponse{}, billingdomain.ErrInvalidUnit
	}
	agreementID := strings.TrimSpace(req.AgreementID)
	if agreementID == "" {
		return billingdomain.UpsertBillResponse{}, billingdomain.ErrInvalidAgreement
	}
	if req.Total.IsNegative() {
		return billingdomain.UpsertBillResponse{}, billingdomain.ErrInvalidTotal
	}

	now := s.clock.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	var (
		billingID string
		created   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindForPeriodForUpdate(ctx, tx, unitID, periodStart, periodEnd)
		if err != nil {
			return err
		}

		if bill != nil {
			bill.TotalAmountDue = req.Total
			bill.Status = billingdomain.BillStatusUnpaid
			bill.UpdatedAt = now
			if err := s.repo.UpdateTotals(ctx, tx, bill); err != nil {
				return err
			}
			billingID = bill.BillingID
		} else {
			id, err := s.keys.Allocate(ctx, func(ctx context.Context, key string) (bool, error) {
				return s.repo.ExistsBillingID(ctx, tx, key)
			})
			if err != nil {
				return err
			}

			newBill := billingdomain.Bill{
				ID:             s.genID.Generate(),
				BillingID:      id,
				UnitID:         unitID,
				AgreementID:    agreementID,
				BillingPeriod:  now,
				TotalAmountDue: req.Total,
				Status:         billingdomain.BillStatusUnpaid,
				DueDate:        lastDayOfMonth(now),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.repo.Insert(ctx, tx, &newBill); err != nil {
				return err
			}
			billingID = id
			created = true
		}

		return s.repo.ReplaceCharges(ctx, tx, billingID, s.buildCharges(billingID, req, now))
	})
	if err != nil {
		return billingdomain.UpsertBillResponse{}, err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.metrics.RecordBillUpsert(ctx, outcome)
	s.log.Info("bill upserted",
		zap.String("billing_id", billingID),
		zap.String("unit_id", unitID),
		zap.Bool("created", created),
	)

	return billingdomain.UpsertBillResponse{BillingID: billingID, Created: created}, nil
}

func (s *Service) GetByID(ctx context.Context, billingID string) (billingdomain.BillDetail, error) {
	billingID = strings.TrimSpace(billingID)
	if billingID == "" {
		return billingdomain.BillDetail{}, billingdomain.ErrBillNotFound
	}

	bill, err := s.repo.FindByBillingID(ctx, s.db, billingID)
	if err != nil {
		return billingdomain.BillDetail{}, err
	}
	if bill == nil {
		return billingdomain.BillDetail{}, billingdomain.ErrBillNotFound
	}

	charges, err := s.repo.ListCharges(ctx, s.db, billingID)
	if err != nil {
		return billingdomain.BillDetail{}, err
	}

	return billingdomain.BillDetail{Bill: *bill, Charges: charges}, nil
}

func (s *Service) ListByUnit(ctx context.Context, unitID string) ([]billingdomain.Bill, error) {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, billingdomain.ErrInvalidUnit
	}
	return s.repo.ListByUnit(ctx, s.db, unitID)
}

// buildCharges merges additional charges and discounts into one tagged set,
// skipping lines with an empty type or a non-positive amount.
func (s *Service) buildCharges(billingID string, req billingdomain.UpsertBillRequest, now time.Time) []billingdomain.BillingAdditionalCharge {
	charges := make([]billingdomain.BillingAdditionalCharge, 0, len(req.AdditionalCharges)+len(req.Discounts))

	appendLines := func(lines []billingdomain.ChargeInput, category billingdomain.ChargeCategory) {
		for _, line := range lines {
			chargeType := strings.TrimSpace(line.Type)
			if chargeType == "" || !line.Amount.IsPositive() {
				continue
			}
			charges = append(charges, billingdomain.BillingAdditionalCharge{
				ID:         s.genID.Generate(),
				BillingID:  billingID,
				Category:   category,
				ChargeType: chargeType,
				Amount:     line.Amount,
				CreatedAt:  now,
			})
		}
	}

	appendLines(req.AdditionalCharges, billingdomain.ChargeCategoryAdditional)
	appendLines(req.Discounts, billingdomain.ChargeCategoryDiscount)
	return charges
}

func lastDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
