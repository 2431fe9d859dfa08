package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

const billingColumns = `billing_id, bill_id, lease_id, unit_id, billing_period, total_water_amount,
	 total_electricity_amount, total_amount_due, due_date, status, late_fee_applied_for,
	 late_fee_amount, created_at, updated_at`

func (r *repo) ListBillableLeases(ctx context.Context, db *gorm.DB, periodStart, periodEnd time.Time) ([]billingdomain.BillableLease, error) {
	var leases []billingdomain.BillableLease
	err := db.WithContext(ctx).Raw(
		`SELECT la.agreement_id AS lease_id, la.tenant_id, la.unit_id, p.property_id,
		 u.rent_amount, p.billing_due_day AS due_day
		 FROM lease_agreements la
		 JOIN units u ON u.unit_id = la.unit_id
		 JOIN properties p ON p.property_id = u.property_id
		 WHERE la.status IN ?
		   AND la.start_date <= ?
		   AND la.end_date >= ?
		   AND NOT (p.is_submetered_water AND p.is_submetered_electricity)
		 ORDER BY la.agreement_id ASC`,
		[]leasedomain.LeaseStatus{leasedomain.LeaseStatusActive, leasedomain.LeaseStatusCompleted},
		periodEnd,
		periodStart,
	).Scan(&leases).Error
	if err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *repo) FindByUnitPeriodForUpdate(ctx context.Context, db *gorm.DB, unitID int64, period time.Time) (*billingdomain.Billing, error) {
	var billing billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+`
		 FROM billings WHERE unit_id = ? AND billing_period = ? FOR UPDATE`,
		unitID,
		period,
	).Scan(&billing).Error
	if err != nil {
		return nil, err
	}
	if billing.ID == 0 {
		return nil, nil
	}
	return &billing, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, billing *billingdomain.Billing) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billings (`+billingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		billing.ID,
		billing.BillID,
		billing.LeaseID,
		billing.UnitID,
		billing.BillingPeriod,
		billing.TotalWaterAmount,
		billing.TotalElectricityAmount,
		billing.TotalAmountDue,
		billing.DueDate,
		billing.Status,
		billing.LateFeeAppliedFor,
		billing.LateFeeAmount,
		billing.CreatedAt,
		billing.UpdatedAt,
	).Error
}

func (r *repo) UpdateAmount(ctx context.Context, db *gorm.DB, billingID int64, total decimal.Decimal, dueDate, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings SET total_amount_due = ?, due_date = ?, updated_at = ?
		 WHERE billing_id = ? AND status IN ?`,
		total,
		dueDate,
		now,
		billingID,
		[]billingdomain.BillingStatus{billingdomain.BillingStatusUnpaid, billingdomain.BillingStatusOverdue},
	).Error
}

// UpdateStatus is a compare-and-set on status; false means another writer moved the row first.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, billingID int64, from, to billingdomain.BillingStatus, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE billings SET status = ?, updated_at = ?
		 WHERE billing_id = ? AND status = ?`,
		to,
		now,
		billingID,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindClearedPDC(ctx context.Context, db *gorm.DB, leaseID int64, periodStart, periodEnd time.Time) (*billingdomain.PostDatedCheck, error) {
	var pdc billingdomain.PostDatedCheck
	err := db.WithContext(ctx).Raw(
		`SELECT pdc_id, lease_id, check_number, bank_name, amount, due_date, status
		 FROM post_dated_checks
		 WHERE lease_id = ? AND status = ? AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date ASC, pdc_id ASC
		 LIMIT 1`,
		leaseID,
		billingdomain.PDCStatusCleared,
		periodStart,
		periodEnd,
	).Scan(&pdc).Error
	if err != nil {
		return nil, err
	}
	if pdc.ID == 0 {
		return nil, nil
	}
	return &pdc, nil
}

func (r *repo) FindPaymentMethodID(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var methodID int64
	err := db.WithContext(ctx).Raw(
		`SELECT method_id FROM payment_methods WHERE LOWER(method_name) = LOWER(?) LIMIT 1`,
		name,
	).Scan(&methodID).Error
	if err != nil {
		return 0, err
	}
	if methodID == 0 {
		return 0, billingdomain.ErrPaymentMethodNotFound
	}
	return methodID, nil
}

func (r *repo) HasConfirmedPayment(ctx context.Context, db *gorm.DB, agreementID, methodID int64, billID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments
		 WHERE agreement_id = ? AND payment_method_id = ? AND payment_status = ? AND bill_id = ?`,
		agreementID,
		methodID,
		billingdomain.PaymentStatusConfirmed,
		billID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *billingdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			payment_id, agreement_id, bill_id, payment_type, amount_paid, payment_method_id,
			payment_status, receipt_reference, payment_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.AgreementID,
		payment.BillID,
		payment.PaymentType,
		payment.AmountPaid,
		payment.PaymentMethodID,
		payment.PaymentStatus,
		payment.ReceiptReference,
		payment.PaymentDate,
	).Error
}

func (r *repo) ListLateFeeCandidates(ctx context.Context, db *gorm.DB) ([]billingdomain.LateFeeCandidate, error) {
	var candidates []billingdomain.LateFeeCandidate
	err := db.WithContext(ctx).Raw(
		`SELECT b.billing_id, b.bill_id, b.lease_id, b.billing_period, b.total_amount_due,
		 b.due_date, b.status, b.late_fee_applied_for, p.late_fee_type, p.late_fee_amount, p.grace_period_days
		 FROM billings b
		 JOIN units u ON u.unit_id = b.unit_id
		 JOIN properties p ON p.property_id = u.property_id
		 WHERE b.status IN ?
		   AND (b.late_fee_applied_for IS NULL OR b.late_fee_applied_for <> b.billing_period)
		 ORDER BY b.billing_id ASC`,
		[]billingdomain.BillingStatus{billingdomain.BillingStatusUnpaid, billingdomain.BillingStatusOverdue},
	).Scan(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// ApplyLateFee adds penalty once per billing period. It returns false when the
// row was settled or already penalized by a concurrent run.
func (r *repo) ApplyLateFee(ctx context.Context, db *gorm.DB, billingID int64, penalty decimal.Decimal, period, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET total_amount_due = total_amount_due + ?,
		     late_fee_amount = ?,
		     late_fee_applied_for = ?,
		     status = ?,
		     updated_at = ?
		 WHERE billing_id = ?
		   AND status IN ?
		   AND (late_fee_applied_for IS NULL OR late_fee_applied_for <> ?)`,
		penalty,
		penalty,
		period,
		billingdomain.BillingStatusOverdue,
		now,
		billingID,
		[]billingdomain.BillingStatus{billingdomain.BillingStatusUnpaid, billingdomain.BillingStatusOverdue},
		period,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
