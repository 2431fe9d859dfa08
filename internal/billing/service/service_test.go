package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/billing/repository"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	"github.com/smallbiznis/rentflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	fx    *testutil.Fixtures
	repo  billingdomain.Repository
}

func newTestEnv(t *testing.T, now time.Time, repo billingdomain.Repository) testEnv {
	t.Helper()

	db := testutil.OpenSQLite(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)
	if repo == nil {
		repo = repository.Provide()
	}

	svc := NewService(ServiceParam{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Repo:          repo,
		BillingConfig: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	}).(*Service)

	return testEnv{svc: svc, db: db, clock: clk, fx: testutil.NewFixtures(t, db), repo: repo}
}

// seedLease creates landlord 1, tenant 2, property 10, unit 11 and an active lease 101.
func seedLease(env testEnv, rent int64) {
	env.fx.User(1, "landlord", "landlord@example.com")
	env.fx.User(2, "tenant", "tenant@example.com")
	env.fx.Property(testutil.Property{ID: 10, LandlordID: 1, Name: "Sunset Apartments"})
	env.fx.Unit(11, 10, "Unit 1A", decimal.NewFromInt(rent), "occupied")
	env.fx.Lease(testutil.Lease{
		ID:       101,
		TenantID: 2,
		UnitID:   11,
		Start:    testutil.Date(2024, time.January, 1),
		End:      testutil.Date(2024, time.December, 31),
		Status:   "active",
	})
}

func (env testEnv) billing(t *testing.T, unitID int64, period time.Time) *billingdomain.Billing {
	t.Helper()
	billing, err := env.repo.FindByUnitPeriodForUpdate(context.Background(), env.db, unitID, period)
	require.NoError(t, err)
	require.NotNil(t, billing)
	return billing
}

func TestGenerateMonthlyCreatesBillingForBillableLeases(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC), nil)
	seedLease(env, 15000)

	// fully submetered property is billed elsewhere
	env.fx.Property(testutil.Property{ID: 20, LandlordID: 1, SubmeteredWater: true, SubmeteredElectricity: true})
	env.fx.Unit(21, 20, "Unit 2A", decimal.NewFromInt(9000), "occupied")
	env.fx.Lease(testutil.Lease{ID: 201, TenantID: 2, UnitID: 21, Start: testutil.Date(2024, 1, 1), End: testutil.Date(2024, 12, 31), Status: "active"})

	// draft leases are not billed
	env.fx.Unit(12, 10, "Unit 1B", decimal.NewFromInt(12000), "unoccupied")
	env.fx.Lease(testutil.Lease{ID: 301, TenantID: 2, UnitID: 12, Start: testutil.Date(2024, 1, 1), End: testutil.Date(2024, 12, 31), Status: "draft"})

	// lease ended before the period
	env.fx.Unit(13, 10, "Unit 1C", decimal.NewFromInt(11000), "unoccupied")
	env.fx.Lease(testutil.Lease{ID: 401, TenantID: 2, UnitID: 13, Start: testutil.Date(2023, 1, 1), End: testutil.Date(2024, 2, 28), Status: "completed"})

	result, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2024, time.March, 1), result.Period)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Failed)

	billing := env.billing(t, 11, testutil.Date(2024, time.March, 1))
	assert.Equal(t, int64(101), billing.LeaseID)
	assert.True(t, decimal.NewFromInt(15000).Equal(billing.TotalAmountDue), "total %s", billing.TotalAmountDue)
	assert.True(t, billing.TotalWaterAmount.IsZero())
	assert.True(t, billing.TotalElectricityAmount.IsZero())
	assert.Equal(t, billingdomain.BillingStatusUnpaid, billing.Status)
	assert.True(t, testutil.Date(2024, time.March, 7).Equal(billing.DueDate.UTC()))
	assert.True(t, strings.HasPrefix(billing.BillID, "BILL-202403-"), billing.BillID)

	assert.Equal(t, int64(1), env.fx.Count("billings", ""))
}

func TestGenerateMonthlyUsesPropertyDueDay(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC), nil)
	env.fx.Property(testutil.Property{ID: 10, LandlordID: 1, DueDay: testutil.Ptr(31)})
	env.fx.Unit(11, 10, "Unit 1A", decimal.NewFromInt(8000), "occupied")
	env.fx.Lease(testutil.Lease{ID: 101, TenantID: 2, UnitID: 11, Start: testutil.Date(2024, 1, 1), End: testutil.Date(2024, 12, 31), Status: "active"})

	_, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)

	billing := env.billing(t, 11, testutil.Date(2024, time.February, 1))
	assert.True(t, testutil.Date(2024, time.February, 29).Equal(billing.DueDate.UTC()), "due %s", billing.DueDate)
}

func TestGenerateMonthlyIsIdempotent(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), nil)
	seedLease(env, 15000)
	env.fx.PDC(900, 101, decimal.NewFromInt(15000), testutil.Date(2024, time.March, 5), "cleared")

	first, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 1, first.PDCPayments)

	env.clock.Advance(time.Hour)
	second, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.SkippedTerminal)
	assert.Equal(t, 0, second.PDCPayments)

	assert.Equal(t, int64(1), env.fx.Count("billings", ""))
	assert.Equal(t, int64(1), env.fx.Count("payments", ""))

	billing := env.billing(t, 11, testutil.Date(2024, time.March, 1))
	assert.Equal(t, billingdomain.BillingStatusPaid, billing.Status)

	var payment billingdomain.Payment
	require.NoError(t, env.db.Raw(`SELECT payment_id, agreement_id, bill_id, payment_type, amount_paid,
		payment_method_id, payment_status, receipt_reference, payment_date FROM payments`).Scan(&payment).Error)
	assert.Equal(t, int64(101), payment.AgreementID)
	assert.Equal(t, billing.BillID, payment.BillID)
	assert.Equal(t, "rent", payment.PaymentType)
	assert.Equal(t, "confirmed", payment.PaymentStatus)
	assert.Equal(t, int64(1), payment.PaymentMethodID)
	assert.True(t, strings.HasPrefix(payment.ReceiptReference, "PDC-"), payment.ReceiptReference)
}

func TestGenerateMonthlyReconcilesPDCClearedLater(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), nil)
	seedLease(env, 15000)
	env.fx.PDC(900, 101, decimal.NewFromInt(15000), testutil.Date(2024, time.March, 5), "pending")

	result, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.PDCPayments)
	assert.Equal(t, billingdomain.BillingStatusUnpaid, env.billing(t, 11, testutil.Date(2024, 3, 1)).Status)

	require.NoError(t, env.db.Exec(`UPDATE post_dated_checks SET status = 'cleared' WHERE pdc_id = 900`).Error)
	env.clock.Advance(24 * time.Hour)

	result, err = env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PDCPayments)
	assert.Equal(t, billingdomain.BillingStatusPaid, env.billing(t, 11, testutil.Date(2024, 3, 1)).Status)
	assert.Equal(t, int64(1), env.fx.Count("payments", "agreement_id = ?", 101))
}

func TestGenerateMonthlyIgnoresPDCOutsidePeriod(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), nil)
	seedLease(env, 15000)
	env.fx.PDC(900, 101, decimal.NewFromInt(15000), testutil.Date(2024, time.April, 5), "cleared")

	result, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.PDCPayments)
	assert.Equal(t, int64(0), env.fx.Count("payments", ""))
}

func TestGenerateMonthlyRefreshesOpenBilling(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), nil)
	seedLease(env, 15000)
	env.fx.Billing(testutil.Billing{
		ID:      501,
		BillID:  "BILL-202403-OLD",
		LeaseID: 101,
		UnitID:  11,
		Period:  testutil.Date(2024, time.March, 1),
		Total:   decimal.NewFromInt(14000),
		DueDate: testutil.Date(2024, time.March, 5),
		Status:  "unpaid",
	})

	result, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Refreshed)

	billing := env.billing(t, 11, testutil.Date(2024, time.March, 1))
	assert.Equal(t, int64(501), billing.ID)
	assert.Equal(t, "BILL-202403-OLD", billing.BillID)
	assert.True(t, decimal.NewFromInt(15000).Equal(billing.TotalAmountDue))
	assert.True(t, testutil.Date(2024, time.March, 7).Equal(billing.DueDate.UTC()))

	result, err = env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Refreshed)
	assert.Equal(t, 1, result.Unchanged)
}

func TestGenerateMonthlyKeepsAppliedLateFeeOnRefresh(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), nil)
	seedLease(env, 15000)
	period := testutil.Date(2024, time.March, 1)
	env.fx.Billing(testutil.Billing{
		ID: 501, BillID: "BILL-202403-LATE", LeaseID: 101, UnitID: 11, Period: period,
		Total: decimal.NewFromInt(15750), DueDate: testutil.Date(2024, 3, 7), Status: "overdue",
		LateFeeAppliedFor: &period,
	})
	require.NoError(t, env.db.Exec(`UPDATE billings SET late_fee_amount = 750 WHERE billing_id = 501`).Error)

	result, err := env.svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unchanged)

	billing := env.billing(t, 11, period)
	assert.True(t, decimal.NewFromInt(15750).Equal(billing.TotalAmountDue), "total %s", billing.TotalAmountDue)
	assert.Equal(t, billingdomain.BillingStatusOverdue, billing.Status)
}

func TestGenerateMonthlySkipsTerminalBilling(t *testing.T) {
	for _, status := range []string{"paid", "finalized"} {
		t.Run(status, func(t *testing.T) {
			env := newTestEnv(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), nil)
			seedLease(env, 15000)
			env.fx.Billing(testutil.Billing{
				ID: 501, BillID: "BILL-202403-DONE", LeaseID: 101, UnitID: 11,
				Period: testutil.Date(2024, 3, 1), Total: decimal.NewFromInt(14000),
				DueDate: testutil.Date(2024, 3, 7), Status: status,
			})
			env.fx.PDC(900, 101, decimal.NewFromInt(15000), testutil.Date(2024, 3, 5), "cleared")

			result, err := env.svc.GenerateMonthly(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.SkippedTerminal)
			assert.Equal(t, 0, result.PDCPayments)

			billing := env.billing(t, 11, testutil.Date(2024, 3, 1))
			assert.True(t, decimal.NewFromInt(14000).Equal(billing.TotalAmountDue))
			assert.Equal(t, billingdomain.BillingStatus(status), billing.Status)
			assert.Equal(t, int64(0), env.fx.Count("payments", ""))
		})
	}
}

type failingInsertRepo struct {
	billingdomain.Repository
	failUnit int64
}

func (r failingInsertRepo) Insert(ctx context.Context, db *gorm.DB, billing *billingdomain.Billing) error {
	if billing.UnitID == r.failUnit {
		return errors.New("insert rejected")
	}
	return r.Repository.Insert(ctx, db, billing)
}

func TestGenerateMonthlyIsolatesLeaseFailures(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), failingInsertRepo{
		Repository: repository.Provide(),
		failUnit:   11,
	})
	seedLease(env, 15000)
	env.fx.Unit(12, 10, "Unit 1B", decimal.NewFromInt(12000), "occupied")
	env.fx.Lease(testutil.Lease{ID: 102, TenantID: 2, UnitID: 12, Start: testutil.Date(2024, 1, 1), End: testutil.Date(2024, 12, 31), Status: "active"})

	result, err := env.svc.GenerateMonthly(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lease 101")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, int64(1), env.fx.Count("billings", "unit_id = ?", 12))
}

func seedLateFeeScenario(env testEnv, lateFeeType string, amount int64, grace int) {
	env.fx.Property(testutil.Property{
		ID:              10,
		LandlordID:      1,
		LateFeeType:     testutil.Ptr(lateFeeType),
		LateFeeAmount:   testutil.Ptr(decimal.NewFromInt(amount)),
		GracePeriodDays: grace,
	})
	env.fx.Unit(11, 10, "Unit 1A", decimal.NewFromInt(15000), "occupied")
	env.fx.Billing(testutil.Billing{
		ID:      501,
		BillID:  "BILL-202403-501",
		LeaseID: 101,
		UnitID:  11,
		Period:  testutil.Date(2024, time.March, 1),
		Total:   decimal.NewFromInt(15000),
		DueDate: testutil.Date(2024, time.March, 7),
		Status:  "unpaid",
	})
}

func TestApplyLateFeesRespectsGracePeriodAndAppliesOnce(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC), nil)
	seedLateFeeScenario(env, "percentage", 5, 5)

	result, err := env.svc.ApplyLateFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.WithinGrace)
	assert.Equal(t, 0, result.Applied)

	billing := env.billing(t, 11, testutil.Date(2024, 3, 1))
	assert.True(t, decimal.NewFromInt(15000).Equal(billing.TotalAmountDue))
	assert.Equal(t, billingdomain.BillingStatusUnpaid, billing.Status)

	env.clock.Set(time.Date(2024, time.March, 13, 0, 5, 0, 0, time.UTC))
	result, err = env.svc.ApplyLateFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	billing = env.billing(t, 11, testutil.Date(2024, 3, 1))
	assert.True(t, decimal.NewFromInt(15750).Equal(billing.TotalAmountDue), "total %s", billing.TotalAmountDue)
	assert.True(t, decimal.NewFromInt(750).Equal(billing.LateFeeAmount))
	assert.Equal(t, billingdomain.BillingStatusOverdue, billing.Status)
	require.NotNil(t, billing.LateFeeAppliedFor)
	assert.True(t, testutil.Date(2024, 3, 1).Equal(billing.LateFeeAppliedFor.UTC()))

	for i := 0; i < 3; i++ {
		env.clock.Advance(24 * time.Hour)
		result, err = env.svc.ApplyLateFees(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, result.Applied)
	}
	billing = env.billing(t, 11, testutil.Date(2024, 3, 1))
	assert.True(t, decimal.NewFromInt(15750).Equal(billing.TotalAmountDue), "total %s", billing.TotalAmountDue)
}

func TestApplyLateFeesFlatAmount(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), nil)
	seedLateFeeScenario(env, "flat", 500, 3)

	result, err := env.svc.ApplyLateFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	billing := env.billing(t, 11, testutil.Date(2024, 3, 1))
	assert.True(t, decimal.NewFromInt(15500).Equal(billing.TotalAmountDue), "total %s", billing.TotalAmountDue)
}

func TestApplyLateFeesSkipsUnconfiguredAndSettled(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC), nil)
	env.fx.Property(testutil.Property{ID: 10, LandlordID: 1})
	env.fx.Unit(11, 10, "Unit 1A", decimal.NewFromInt(15000), "occupied")
	env.fx.Billing(testutil.Billing{
		ID: 501, BillID: "BILL-202403-501", LeaseID: 101, UnitID: 11, Period: testutil.Date(2024, 3, 1),
		Total: decimal.NewFromInt(15000), DueDate: testutil.Date(2024, 3, 7), Status: "unpaid",
	})
	env.fx.Billing(testutil.Billing{
		ID: 502, BillID: "BILL-202404-502", LeaseID: 101, UnitID: 11, Period: testutil.Date(2024, 4, 1),
		Total: decimal.NewFromInt(15000), DueDate: testutil.Date(2024, 4, 7), Status: "paid",
	})

	result, err := env.svc.ApplyLateFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Unconfigured)
	assert.Equal(t, 0, result.Applied)
}

func TestPenaltyRoundsToCents(t *testing.T) {
	got := Penalty(billingdomain.LateFeeTypePercentage, decimal.RequireFromString("2.5"), decimal.RequireFromString("1234.50"))
	assert.Equal(t, "30.86", got.StringFixed(2))

	got = Penalty(billingdomain.LateFeeTypeFlat, decimal.RequireFromString("99.999"), decimal.NewFromInt(100))
	assert.Equal(t, "100.00", got.StringFixed(2))
}

func TestDueDateDefaultsAndClamps(t *testing.T) {
	feb := testutil.Date(2023, time.February, 1)
	assert.Equal(t, testutil.Date(2023, 2, 7), DueDate(feb, nil, 7))
	assert.Equal(t, testutil.Date(2023, 2, 28), DueDate(feb, testutil.Ptr(30), 7))
	assert.Equal(t, testutil.Date(2023, 2, 7), DueDate(feb, testutil.Ptr(0), 7))
	assert.Equal(t, testutil.Date(2023, 2, 15), DueDate(feb, testutil.Ptr(15), 7))
}
