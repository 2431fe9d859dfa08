package guard

import (
	"errors"
	"strings"
	"time"

	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
)

var (
	ErrBillingTerminal     = errors.New("billing_terminal")
	ErrWithinGracePeriod   = errors.New("within_grace_period")
	ErrLateFeeUnconfigured = errors.New("late_fee_unconfigured")
	ErrLateFeeApplied      = errors.New("late_fee_already_applied")
)

// EnsureBillingRefreshable rejects amount changes on settled billings.
func EnsureBillingRefreshable(status billingdomain.BillingStatus) error {
	if status.IsTerminal() {
		return ErrBillingTerminal
	}
	return nil
}

// GraceLimit is the last calendar day on which no late fee applies.
func GraceLimit(dueDate time.Time, graceDays int) time.Time {
	if graceDays < 0 {
		graceDays = 0
	}
	due := dueDate.UTC()
	return time.Date(due.Year(), due.Month(), due.Day()+graceDays, 0, 0, 0, 0, time.UTC)
}

// EnsureLateFeeApplicable checks every precondition for penalizing candidate on today.
func EnsureLateFeeApplicable(candidate billingdomain.LateFeeCandidate, today time.Time) (billingdomain.LateFeeType, error) {
	if candidate.Status.IsTerminal() {
		return "", ErrBillingTerminal
	}
	if applied := candidate.LateFeeAppliedFor; applied != nil && applied.UTC().Equal(candidate.BillingPeriod.UTC()) {
		return "", ErrLateFeeApplied
	}
	if candidate.LateFeeType == nil || !candidate.LateFeeAmount.Valid || !candidate.LateFeeAmount.Decimal.IsPositive() {
		return "", ErrLateFeeUnconfigured
	}
	feeType := billingdomain.LateFeeType(strings.ToLower(strings.TrimSpace(*candidate.LateFeeType)))
	if !feeType.Valid() {
		return "", ErrLateFeeUnconfigured
	}
	if !today.After(GraceLimit(candidate.DueDate, candidate.GracePeriodDays)) {
		return "", ErrWithinGracePeriod
	}
	return feeType, nil
}
