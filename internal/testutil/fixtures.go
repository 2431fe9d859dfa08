package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fixtures inserts rows with the same parameter encoding the services use,
// so date comparisons behave like production queries.
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
}

func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) exec(sql string, args ...any) {
	f.t.Helper()
	if err := f.db.Exec(sql, args...).Error; err != nil {
		f.t.Fatalf("fixture failed: %v\n%s", err, sql)
	}
}

func (f *Fixtures) User(id int64, userType, email string) {
	f.t.Helper()
	f.exec(`INSERT INTO users (user_id, email, user_type) VALUES (?, ?, ?)`, id, email, userType)
}

type Property struct {
	ID                    int64
	LandlordID            int64
	Name                  string
	SubmeteredWater       bool
	SubmeteredElectricity bool
	DueDay                *int
	LateFeeType           *string
	LateFeeAmount         *decimal.Decimal
	GracePeriodDays       int
}

func (f *Fixtures) Property(p Property) {
	f.t.Helper()
	if p.Name == "" {
		p.Name = "Property"
	}
	f.exec(`INSERT INTO properties (
		property_id, landlord_id, name, is_submetered_water, is_submetered_electricity,
		billing_due_day, late_fee_type, late_fee_amount, grace_period_days
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.LandlordID, p.Name, p.SubmeteredWater, p.SubmeteredElectricity,
		p.DueDay, p.LateFeeType, p.LateFeeAmount, p.GracePeriodDays,
	)
}

func (f *Fixtures) Unit(id, propertyID int64, name string, rent decimal.Decimal, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO units (unit_id, property_id, unit_name, rent_amount, status) VALUES (?, ?, ?, ?, ?)`,
		id, propertyID, name, rent, status)
}

type Lease struct {
	ID         int64
	TenantID   int64
	UnitID     int64
	Start      time.Time
	End        time.Time
	Status     string
	EnvelopeID *string
}

func (f *Fixtures) Lease(l Lease) {
	f.t.Helper()
	f.exec(`INSERT INTO lease_agreements (
		agreement_id, tenant_id, unit_id, start_date, end_date, status, docusign_envelope_id, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TenantID, l.UnitID, l.Start.UTC(), l.End.UTC(), l.Status, l.EnvelopeID, l.Start.UTC(),
	)
}

func (f *Fixtures) Signature(id, agreementID int64, role, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO lease_signatures (id, agreement_id, role, status) VALUES (?, ?, ?, ?)`,
		id, agreementID, role, status)
}

func (f *Fixtures) PDC(id, leaseID int64, amount decimal.Decimal, dueDate time.Time, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO post_dated_checks (pdc_id, lease_id, check_number, bank_name, amount, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, leaseID, "CHK-0001", "Test Bank", amount, dueDate.UTC(), status)
}

type Billing struct {
	ID                int64
	BillID            string
	LeaseID           int64
	UnitID            int64
	Period            time.Time
	Total             decimal.Decimal
	DueDate           time.Time
	Status            string
	LateFeeAppliedFor *time.Time
}

func (f *Fixtures) Billing(b Billing) {
	f.t.Helper()
	f.exec(`INSERT INTO billings (
		billing_id, bill_id, lease_id, unit_id, billing_period, total_water_amount,
		total_electricity_amount, total_amount_due, due_date, status, late_fee_applied_for,
		late_fee_amount, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?, 0, ?, ?)`,
		b.ID, b.BillID, b.LeaseID, b.UnitID, b.Period.UTC(), b.Total, b.DueDate.UTC(), b.Status,
		b.LateFeeAppliedFor, b.Period.UTC(), b.Period.UTC(),
	)
}

type Subscription struct {
	ID            int64
	LandlordID    int64
	PlanName      string
	IsTrial       bool
	Start         time.Time
	End           time.Time
	PaymentStatus string
}

func (f *Fixtures) Subscription(s Subscription) {
	f.t.Helper()
	f.exec(`INSERT INTO subscriptions (
		subscription_id, landlord_id, plan_name, is_active, is_trial, start_date, end_date, payment_status, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.LandlordID, s.PlanName, true, s.IsTrial, s.Start.UTC(), s.End.UTC(), s.PaymentStatus, s.Start.UTC(),
	)
}

func (f *Fixtures) PushSubscription(id, userID int64, endpoint string) {
	f.t.Helper()
	f.exec(`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, endpoint, "p256dh-key", "auth-secret", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

// Count returns the number of rows matching where.
func (f *Fixtures) Count(table, where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	query := `SELECT COUNT(1) FROM ` + table
	if where != "" {
		query += ` WHERE ` + where
	}
	if err := f.db.Raw(query, args...).Scan(&n).Error; err != nil {
		f.t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func Ptr[T any](v T) *T { return &v }

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
