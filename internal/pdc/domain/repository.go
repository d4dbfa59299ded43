package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, check *PostDatedCheck) error
	ExistsPDCID(ctx context.Context, db *gorm.DB, pdcID string) (bool, error)
	FindByPDCID(ctx context.Context, db *gorm.DB, pdcID string) (*PostDatedCheck, error)
	FindByPDCIDForUpdate(ctx context.Context, db *gorm.DB, pdcID string) (*PostDatedCheck, error)
	FindContext(ctx context.Context, db *gorm.DB, pdcID string) (*CheckContext, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, pdcID string, status PDCStatus, now time.Time) error
	ListByAgreement(ctx context.Context, db *gorm.DB, agreementID string) ([]PostDatedCheck, error)
}
