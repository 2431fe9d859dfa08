package repository

import (
	"context"
	"time"

	subscriptiondomain "github.com/smallbiznis/rentflow/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) ListExpired(ctx context.Context, db *gorm.DB, today time.Time) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT subscription_id, landlord_id, plan_name, is_active, is_trial, start_date,
		 end_date, payment_status, updated_at
		 FROM subscriptions
		 WHERE end_date < ?
		 ORDER BY landlord_id ASC`,
		today,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) FindByLandlordForUpdate(ctx context.Context, db *gorm.DB, landlordID int64) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT subscription_id, landlord_id, plan_name, is_active, is_trial, start_date,
		 end_date, payment_status, updated_at
		 FROM subscriptions WHERE landlord_id = ? FOR UPDATE`,
		landlordID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *subscriptiondomain.HistoryEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_history (
			id, landlord_id, plan_name, is_trial, start_date, end_date, reason, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.LandlordID,
		entry.PlanName,
		entry.IsTrial,
		entry.StartDate,
		entry.EndDate,
		entry.Reason,
		entry.ArchivedAt,
	).Error
}

func (r *repo) ResetPlan(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan_name = ?, is_active = ?, is_trial = ?, start_date = ?, end_date = ?,
		     payment_status = ?, updated_at = ?
		 WHERE landlord_id = ?`,
		sub.PlanName,
		sub.IsActive,
		sub.IsTrial,
		sub.StartDate,
		sub.EndDate,
		sub.PaymentStatus,
		sub.UpdatedAt,
		sub.LandlordID,
	).Error
}
