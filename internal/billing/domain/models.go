// Package domain contains billing rows, reconciliation inputs and job results.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing is one charge per unit per calendar month.
type Billing struct {
	ID                     int64           `gorm:"column:billing_id;primaryKey"`
	BillID                 string          `gorm:"column:bill_id"`
	LeaseID                int64           `gorm:"column:lease_id"`
	UnitID                 int64           `gorm:"column:unit_id"`
	BillingPeriod          time.Time       `gorm:"column:billing_period"`
	TotalWaterAmount       decimal.Decimal `gorm:"column:total_water_amount"`
	TotalElectricityAmount decimal.Decimal `gorm:"column:total_electricity_amount"`
	TotalAmountDue         decimal.Decimal `gorm:"column:total_amount_due"`
	DueDate                time.Time       `gorm:"column:due_date"`
	Status                 BillingStatus   `gorm:"column:status"`
	LateFeeAppliedFor      *time.Time      `gorm:"column:late_fee_applied_for"`
	LateFeeAmount          decimal.Decimal `gorm:"column:late_fee_amount"`
	CreatedAt              time.Time       `gorm:"column:created_at"`
	UpdatedAt              time.Time       `gorm:"column:updated_at"`
}

func (Billing) TableName() string { return "billings" }

// BillableLease is a lease whose unit should carry a bill for the period.
type BillableLease struct {
	LeaseID    int64           `gorm:"column:lease_id"`
	TenantID   int64           `gorm:"column:tenant_id"`
	UnitID     int64           `gorm:"column:unit_id"`
	PropertyID int64           `gorm:"column:property_id"`
	RentAmount decimal.Decimal `gorm:"column:rent_amount"`
	DueDay     *int            `gorm:"column:due_day"`
}

type PostDatedCheck struct {
	ID          int64           `gorm:"column:pdc_id"`
	LeaseID     int64           `gorm:"column:lease_id"`
	CheckNumber string          `gorm:"column:check_number"`
	BankName    string          `gorm:"column:bank_name"`
	Amount      decimal.Decimal `gorm:"column:amount"`
	DueDate     time.Time       `gorm:"column:due_date"`
	Status      PDCStatus       `gorm:"column:status"`
}

type Payment struct {
	ID               int64           `gorm:"column:payment_id"`
	AgreementID      int64           `gorm:"column:agreement_id"`
	BillID           string          `gorm:"column:bill_id"`
	PaymentType      string          `gorm:"column:payment_type"`
	AmountPaid       decimal.Decimal `gorm:"column:amount_paid"`
	PaymentMethodID  int64           `gorm:"column:payment_method_id"`
	PaymentStatus    string          `gorm:"column:payment_status"`
	ReceiptReference string          `gorm:"column:receipt_reference"`
	PaymentDate      time.Time       `gorm:"column:payment_date"`
}

// LateFeeCandidate joins an open billing to its property's late fee policy.
type LateFeeCandidate struct {
	BillingID         int64               `gorm:"column:billing_id"`
	BillID            string              `gorm:"column:bill_id"`
	LeaseID           int64               `gorm:"column:lease_id"`
	BillingPeriod     time.Time           `gorm:"column:billing_period"`
	TotalAmountDue    decimal.Decimal     `gorm:"column:total_amount_due"`
	DueDate           time.Time           `gorm:"column:due_date"`
	Status            BillingStatus       `gorm:"column:status"`
	LateFeeAppliedFor *time.Time          `gorm:"column:late_fee_applied_for"`
	LateFeeType       *string             `gorm:"column:late_fee_type"`
	LateFeeAmount     decimal.NullDecimal `gorm:"column:late_fee_amount"`
	GracePeriodDays   int                 `gorm:"column:grace_period_days"`
}

// GenerateResult summarizes one billing generator run.
type GenerateResult struct {
	Period          time.Time `json:"period"`
	Created         int       `json:"created"`
	Refreshed       int       `json:"refreshed"`
	Unchanged       int       `json:"unchanged"`
	SkippedTerminal int       `json:"skipped_terminal"`
	PDCPayments     int       `json:"pdc_payments"`
	Failed          int       `json:"failed"`
}

// Processed counts leases that ended in a write.
func (r GenerateResult) Processed() int {
	return r.Created + r.Refreshed + r.PDCPayments
}

// LateFeeResult summarizes one late fee adjuster run.
type LateFeeResult struct {
	Scanned      int `json:"scanned"`
	Applied      int `json:"applied"`
	WithinGrace  int `json:"within_grace"`
	Unconfigured int `json:"unconfigured"`
	Failed       int `json:"failed"`
}
