package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/billing/guard"
	"github.com/smallbiznis/rentflow/internal/config"
	obscontext "github.com/smallbiznis/rentflow/internal/observability/context"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"github.com/smallbiznis/rentflow/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type upsertOutcome int

const (
	outcomeCreated upsertOutcome = iota + 1
	outcomeRefreshed
	outcomeUnchanged
	outcomeTerminal
)

// GenerateMonthly implements domain.Service.
func (s *Service) GenerateMonthly(ctx context.Context) (billingdomain.GenerateResult, error) {
	now := s.clock.Now().UTC()
	periodStart := PeriodStart(now)
	periodEnd := PeriodEnd(periodStart)
	cfg := s.billingConfig.Get()
	result := billingdomain.GenerateResult{Period: periodStart}

	leases, err := s.repo.ListBillableLeases(ctx, s.db, periodStart, periodEnd)
	if err != nil {
		return result, err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("billing_period", periodStart.Format("2006-01-02")))
	log.Debug("billing.generate.candidates", zap.Int("count", len(leases)))

	var jobErr error
	for _, lease := range leases {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(jobErr, err)
		}
		leaseCtx := obscontext.WithResource(ctx, "lease", lease.LeaseID)
		if err := s.generateForLease(leaseCtx, lease, periodStart, periodEnd, now, cfg, &result); err != nil {
			result.Failed++
			jobErr = errors.Join(jobErr, fmt.Errorf("lease %d: %w", lease.LeaseID, err))
			log.Error("billing.generate.lease_failed",
				zap.Int64("lease_id", lease.LeaseID),
				zap.Int64("unit_id", lease.UnitID),
				zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
				zap.Error(err),
			)
		}
	}

	log.Info("billing.generate.finished",
		zap.Int("created", result.Created),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("skipped_terminal", result.SkippedTerminal),
		zap.Int("pdc_payments", result.PDCPayments),
		zap.Int("failed", result.Failed),
	)
	return result, jobErr
}

func (s *Service) generateForLease(
	ctx context.Context,
	lease billingdomain.BillableLease,
	periodStart, periodEnd, now time.Time,
	cfg config.BillingConfig,
	result *billingdomain.GenerateResult,
) error {
	dueDate := DueDate(periodStart, lease.DueDay, cfg.DefaultDueDay)

	outcome, err := s.upsertBilling(ctx, lease, periodStart, dueDate, now)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// A concurrent run inserted the same unit/period; the retry takes the refresh path.
		outcome, err = s.upsertBilling(ctx, lease, periodStart, dueDate, now)
	}
	if err != nil {
		return err
	}
	switch outcome {
	case outcomeCreated:
		result.Created++
		s.metrics.RecordBillCreated(ctx)
	case outcomeRefreshed:
		result.Refreshed++
	case outcomeUnchanged:
		result.Unchanged++
	case outcomeTerminal:
		result.SkippedTerminal++
		obsmetrics.Scheduler().IncSkipped("generate_billing", obsmetrics.SchedulerSkipReasonTerminal)
	}

	paid, err := s.reconcilePDC(ctx, lease, periodStart, periodEnd, now, cfg.PDCPaymentMethod)
	if err != nil {
		return fmt.Errorf("pdc reconciliation: %w", err)
	}
	if paid {
		result.PDCPayments++
		s.metrics.RecordPDCPayment(ctx)
	}
	return nil
}

func (s *Service) upsertBilling(ctx context.Context, lease billingdomain.BillableLease, period, dueDate, now time.Time) (upsertOutcome, error) {
	var outcome upsertOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByUnitPeriodForUpdate(ctx, tx, lease.UnitID, period)
		if err != nil {
			return err
		}

		if existing == nil {
			billing := &billingdomain.Billing{
				ID:                     s.genID.Generate().Int64(),
				BillID:                 newBillCode(period, now),
				LeaseID:                lease.LeaseID,
				UnitID:                 lease.UnitID,
				BillingPeriod:          period,
				TotalWaterAmount:       zero,
				TotalElectricityAmount: zero,
				TotalAmountDue:         lease.RentAmount,
				DueDate:                dueDate,
				Status:                 billingdomain.BillingStatusUnpaid,
				LateFeeAmount:          zero,
				CreatedAt:              now,
				UpdatedAt:              now,
			}
			if err := s.repo.Insert(ctx, tx, billing); err != nil {
				return err
			}
			outcome = outcomeCreated
			return nil
		}

		if err := guard.EnsureBillingRefreshable(existing.Status); err != nil {
			outcome = outcomeTerminal
			return nil
		}

		// An applied late fee stays part of the amount due.
		total := lease.RentAmount.
			Add(existing.TotalWaterAmount).
			Add(existing.TotalElectricityAmount).
			Add(existing.LateFeeAmount)
		if total.Equal(existing.TotalAmountDue) && sameDate(existing.DueDate, dueDate) {
			outcome = outcomeUnchanged
			return nil
		}
		if err := s.repo.UpdateAmount(ctx, tx, existing.ID, total, dueDate, now); err != nil {
			return err
		}
		outcome = outcomeRefreshed
		return nil
	})
	return outcome, err
}

// reconcilePDC records a cleared post-dated check as the period's payment and
// settles the billing, both in one transaction.
func (s *Service) reconcilePDC(ctx context.Context, lease billingdomain.BillableLease, periodStart, periodEnd, now time.Time, methodName string) (bool, error) {
	pdc, err := s.repo.FindClearedPDC(ctx, s.db, lease.LeaseID, periodStart, periodEnd)
	if err != nil {
		return false, err
	}
	if pdc == nil {
		return false, nil
	}

	methodID, err := s.repo.FindPaymentMethodID(ctx, s.db, methodName)
	if err != nil {
		return false, err
	}

	paid := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billing, err := s.repo.FindByUnitPeriodForUpdate(ctx, tx, lease.UnitID, periodStart)
		if err != nil {
			return err
		}
		if billing == nil {
			return billingdomain.ErrBillingNotFound
		}
		if billing.Status.IsTerminal() {
			return nil
		}

		next, err := billingdomain.Transition(billing.Status, billingdomain.BillingStatusPaid)
		if err != nil {
			return err
		}

		exists, err := s.repo.HasConfirmedPayment(ctx, tx, lease.LeaseID, methodID, billing.BillID)
		if err != nil {
			return err
		}
		if !exists {
			payment := &billingdomain.Payment{
				ID:               s.genID.Generate().Int64(),
				AgreementID:      lease.LeaseID,
				BillID:           billing.BillID,
				PaymentType:      billingdomain.PaymentTypeRent,
				AmountPaid:       pdc.Amount,
				PaymentMethodID:  methodID,
				PaymentStatus:    billingdomain.PaymentStatusConfirmed,
				ReceiptReference: newReceiptReference(now),
				PaymentDate:      now,
			}
			if err := s.repo.InsertPayment(ctx, tx, payment); err != nil {
				return err
			}
		}

		updated, err := s.repo.UpdateStatus(ctx, tx, billing.ID, billing.Status, next, now)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: billing %d changed concurrently", billingdomain.ErrInvalidTransition, billing.ID)
		}
		obsmetrics.Scheduler().IncBillingTransition(string(billing.Status), string(next))
		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}

func newBillCode(period, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", billingdomain.BillCodePrefix, period.Format("200601"), ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()))
}

func newReceiptReference(now time.Time) string {
	return fmt.Sprintf("%s-%s", billingdomain.PDCReceiptPrefix, ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()))
}
