package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	ListExpired(ctx context.Context, db *gorm.DB, today time.Time) ([]Subscription, error)
	FindByLandlordForUpdate(ctx context.Context, db *gorm.DB, landlordID int64) (*Subscription, error)
	InsertHistory(ctx context.Context, db *gorm.DB, entry *HistoryEntry) error
	ResetPlan(ctx context.Context, db *gorm.DB, sub *Subscription) error
}
