package service

import (
	"context"
	"errors"
	"fmt"

	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/billing/guard"
	"github.com/smallbiznis/rentflow/internal/clock"
	obscontext "github.com/smallbiznis/rentflow/internal/observability/context"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"go.uber.org/zap"
)

// ApplyLateFees implements domain.Service.
func (s *Service) ApplyLateFees(ctx context.Context) (billingdomain.LateFeeResult, error) {
	now := s.clock.Now().UTC()
	today := clock.DateOf(now)
	var result billingdomain.LateFeeResult

	candidates, err := s.repo.ListLateFeeCandidates(ctx, s.db)
	if err != nil {
		return result, err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("today", today.Format("2006-01-02")))
	schedMetrics := obsmetrics.Scheduler()

	var jobErr error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(jobErr, err)
		}
		result.Scanned++

		feeType, err := guard.EnsureLateFeeApplicable(candidate, today)
		switch {
		case errors.Is(err, guard.ErrWithinGracePeriod):
			result.WithinGrace++
			schedMetrics.IncSkipped("adjust_late_fees", obsmetrics.SchedulerSkipReasonWithinGrace)
			continue
		case errors.Is(err, guard.ErrLateFeeUnconfigured):
			result.Unconfigured++
			continue
		case err != nil:
			continue
		}

		next, err := billingdomain.Transition(candidate.Status, billingdomain.BillingStatusOverdue)
		if err != nil {
			result.Failed++
			jobErr = errors.Join(jobErr, fmt.Errorf("billing %d: %w", candidate.BillingID, err))
			continue
		}

		penalty := Penalty(feeType, candidate.LateFeeAmount.Decimal, candidate.TotalAmountDue)
		rowCtx := obscontext.WithResource(ctx, "billing", candidate.BillingID)
		applied, err := s.repo.ApplyLateFee(rowCtx, s.db, candidate.BillingID, penalty, candidate.BillingPeriod.UTC(), now)
		if err != nil {
			result.Failed++
			jobErr = errors.Join(jobErr, fmt.Errorf("billing %d: %w", candidate.BillingID, err))
			log.Error("billing.late_fee.failed",
				zap.Int64("billing_id", candidate.BillingID),
				zap.String("bill_id", candidate.BillID),
				zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
				zap.Error(err),
			)
			continue
		}
		if !applied {
			continue
		}

		result.Applied++
		schedMetrics.IncBillingTransition(string(candidate.Status), string(next))
		s.metrics.RecordLateFee(rowCtx, string(feeType))
		log.Info("billing.late_fee.applied",
			zap.Int64("billing_id", candidate.BillingID),
			zap.String("bill_id", candidate.BillID),
			zap.String("fee_type", string(feeType)),
			zap.String("penalty", penalty.StringFixed(2)),
			zap.String("total_amount_due", candidate.TotalAmountDue.Add(penalty).StringFixed(2)),
		)
	}

	return result, jobErr
}
