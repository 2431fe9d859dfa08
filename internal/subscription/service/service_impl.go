package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	obscontext "github.com/smallbiznis/rentflow/internal/observability/context"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/rentflow/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID         *snowflake.Node
	clock         clock.Clock
	repo          subscriptiondomain.Repository
	billingConfig *config.BillingConfigHolder
	metrics       *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository

	BillingConfig *config.BillingConfigHolder `optional:"true"`
	Metrics       *obsmetrics.Metrics         `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		billingConfig: p.BillingConfig,
		metrics:       p.Metrics,
	}
}

// DowngradeExpired implements domain.Service.
func (s *Service) DowngradeExpired(ctx context.Context) (subscriptiondomain.DowngradeResult, error) {
	var result subscriptiondomain.DowngradeResult
	now := s.clock.Now().UTC()
	today := clock.DateOf(now)
	cfg := s.billingConfig.Get()

	expired, err := s.repo.ListExpired(ctx, s.db, today)
	if err != nil {
		return result, err
	}

	log := obslogger.WithContext(ctx, s.log)
	var jobErr error
	for _, sub := range expired {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(jobErr, err)
		}
		result.Scanned++

		downgraded, err := s.downgrade(obscontext.WithResource(ctx, "landlord", sub.LandlordID), sub.LandlordID, today, now, cfg)
		if err != nil {
			result.Failed++
			jobErr = errors.Join(jobErr, fmt.Errorf("landlord %d: %w", sub.LandlordID, err))
			log.Error("subscription.downgrade.failed",
				zap.Int64("landlord_id", sub.LandlordID),
				zap.String("plan_name", sub.PlanName),
				zap.Error(err),
			)
			continue
		}
		if !downgraded {
			continue
		}
		result.Downgraded++
		s.metrics.RecordDowngrade(ctx)
		log.Info("subscription.downgraded",
			zap.Int64("landlord_id", sub.LandlordID),
			zap.String("from_plan", sub.PlanName),
			zap.String("to_plan", cfg.FreePlanName),
		)
	}

	return result, jobErr
}

func (s *Service) downgrade(ctx context.Context, landlordID int64, today, now time.Time, cfg config.BillingConfig) (bool, error) {
	downgraded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByLandlordForUpdate(ctx, tx, landlordID)
		if err != nil {
			return err
		}
		if current == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		// Renewed between listing and locking.
		if !current.EndDate.Before(today) {
			return nil
		}

		if err := s.repo.InsertHistory(ctx, tx, &subscriptiondomain.HistoryEntry{
			ID:         s.genID.Generate().Int64(),
			LandlordID: current.LandlordID,
			PlanName:   current.PlanName,
			IsTrial:    current.IsTrial,
			StartDate:  current.StartDate,
			EndDate:    current.EndDate,
			Reason:     subscriptiondomain.ReasonExpired,
			ArchivedAt: now,
		}); err != nil {
			return err
		}

		months := cfg.FreePlanMonths
		if months <= 0 {
			months = 12
		}
		updatedAt := now
		if err := s.repo.ResetPlan(ctx, tx, &subscriptiondomain.Subscription{
			LandlordID:    current.LandlordID,
			PlanName:      cfg.FreePlanName,
			IsActive:      true,
			IsTrial:       false,
			StartDate:     now,
			EndDate:       now.AddDate(0, months, 0),
			PaymentStatus: subscriptiondomain.PaymentStatusPaid,
			UpdatedAt:     &updatedAt,
		}); err != nil {
			return err
		}
		downgraded = true
		return nil
	})
	return downgraded, err
}
