package service

import (
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
)

var zero = decimal.Zero

// PeriodStart returns the first day of now's month in UTC.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the last calendar day of the period.
func PeriodEnd(periodStart time.Time) time.Time {
	return periodStart.AddDate(0, 1, -1)
}

// DueDate places the due day inside the period, clamped to the month's last day.
func DueDate(periodStart time.Time, dueDay *int, defaultDueDay int) time.Time {
	day := defaultDueDay
	if dueDay != nil && *dueDay > 0 {
		day = *dueDay
	}
	if day < 1 {
		day = 1
	}
	if last := PeriodEnd(periodStart).Day(); day > last {
		day = last
	}
	return time.Date(periodStart.Year(), periodStart.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Penalty computes the late fee, rounded half away from zero to cents.
func Penalty(feeType billingdomain.LateFeeType, amount, totalDue decimal.Decimal) decimal.Decimal {
	if feeType == billingdomain.LateFeeTypePercentage {
		return totalDue.Mul(amount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return amount.Round(2)
}

func sameDate(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
