package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, referenceNumber string) (*Subscription, error)
	FindActiveByLandlordForUpdate(ctx context.Context, db *gorm.DB, landlordID string) (*Subscription, error)
	FindActiveByLandlord(ctx context.Context, db *gorm.DB, landlordID string) (*Subscription, error)
	DeactivateByLandlord(ctx context.Context, db *gorm.DB, landlordID string, now time.Time) error
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	ListByLandlord(ctx context.Context, db *gorm.DB, landlordID string) ([]Subscription, error)
}
