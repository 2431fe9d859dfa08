package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	ListBillableLeases(ctx context.Context, db *gorm.DB, periodStart, periodEnd time.Time) ([]BillableLease, error)
	FindByUnitPeriodForUpdate(ctx context.Context, db *gorm.DB, unitID int64, period time.Time) (*Billing, error)
	Insert(ctx context.Context, db *gorm.DB, billing *Billing) error
	UpdateAmount(ctx context.Context, db *gorm.DB, billingID int64, total decimal.Decimal, dueDate, now time.Time) error
	UpdateStatus(ctx context.Context, db *gorm.DB, billingID int64, from, to BillingStatus, now time.Time) (bool, error)

	FindClearedPDC(ctx context.Context, db *gorm.DB, leaseID int64, periodStart, periodEnd time.Time) (*PostDatedCheck, error)
	FindPaymentMethodID(ctx context.Context, db *gorm.DB, name string) (int64, error)
	HasConfirmedPayment(ctx context.Context, db *gorm.DB, agreementID, methodID int64, billID string) (bool, error)
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error

	ListLateFeeCandidates(ctx context.Context, db *gorm.DB) ([]LateFeeCandidate, error)
	ApplyLateFee(ctx context.Context, db *gorm.DB, billingID int64, penalty decimal.Decimal, period, now time.Time) (bool, error)
}
