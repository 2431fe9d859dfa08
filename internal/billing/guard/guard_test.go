package guard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candidate() billingdomain.LateFeeCandidate {
	feeType := "Percentage"
	return billingdomain.LateFeeCandidate{
		BillingID:       501,
		BillingPeriod:   day(2024, time.March, 1),
		TotalAmountDue:  decimal.NewFromInt(15000),
		DueDate:         day(2024, time.March, 7),
		Status:          billingdomain.BillingStatusUnpaid,
		LateFeeType:     &feeType,
		LateFeeAmount:   decimal.NewNullDecimal(decimal.NewFromInt(5)),
		GracePeriodDays: 5,
	}
}

func TestGraceLimit(t *testing.T) {
	assert.Equal(t, day(2024, time.March, 12), GraceLimit(day(2024, time.March, 7), 5))
	assert.Equal(t, day(2024, time.April, 2), GraceLimit(day(2024, time.March, 28), 5))
	assert.Equal(t, day(2024, time.March, 7), GraceLimit(day(2024, time.March, 7), -3))
}

func TestEnsureLateFeeApplicable(t *testing.T) {
	_, err := EnsureLateFeeApplicable(candidate(), day(2024, time.March, 12))
	assert.ErrorIs(t, err, ErrWithinGracePeriod)

	feeType, err := EnsureLateFeeApplicable(candidate(), day(2024, time.March, 13))
	require.NoError(t, err)
	assert.Equal(t, billingdomain.LateFeeTypePercentage, feeType)

	applied := candidate()
	period := applied.BillingPeriod
	applied.LateFeeAppliedFor = &period
	_, err = EnsureLateFeeApplicable(applied, day(2024, time.March, 20))
	assert.ErrorIs(t, err, ErrLateFeeApplied)

	paid := candidate()
	paid.Status = billingdomain.BillingStatusPaid
	_, err = EnsureLateFeeApplicable(paid, day(2024, time.March, 20))
	assert.ErrorIs(t, err, ErrBillingTerminal)

	noAmount := candidate()
	noAmount.LateFeeAmount = decimal.NullDecimal{}
	_, err = EnsureLateFeeApplicable(noAmount, day(2024, time.March, 20))
	assert.ErrorIs(t, err, ErrLateFeeUnconfigured)

	unknownType := candidate()
	other := "weekly"
	unknownType.LateFeeType = &other
	_, err = EnsureLateFeeApplicable(unknownType, day(2024, time.March, 20))
	assert.ErrorIs(t, err, ErrLateFeeUnconfigured)
}

func TestEnsureBillingRefreshable(t *testing.T) {
	assert.NoError(t, EnsureBillingRefreshable(billingdomain.BillingStatusOverdue))
	assert.ErrorIs(t, EnsureBillingRefreshable(billingdomain.BillingStatusFinalized), ErrBillingTerminal)
}
