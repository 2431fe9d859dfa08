// Package testutil opens throwaway SQLite databases carrying the production schema.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenSQLite returns an isolated in-memory database with every table created.
// SQLite has no row locks, so FOR UPDATE clauses are stripped before execution.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	if err := db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	if err := db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate); err != nil {
		t.Fatalf("register row callback: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v\n%s", err, stmt)
		}
	}
	return db
}

var schema = []string{
	`CREATE TABLE users (
		user_id INTEGER PRIMARY KEY,
		email TEXT,
		user_type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE properties (
		property_id INTEGER PRIMARY KEY,
		landlord_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		is_submetered_water BOOLEAN NOT NULL DEFAULT 0,
		is_submetered_electricity BOOLEAN NOT NULL DEFAULT 0,
		billing_due_day INTEGER,
		late_fee_type TEXT,
		late_fee_amount NUMERIC(12,2),
		grace_period_days INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE units (
		unit_id INTEGER PRIMARY KEY,
		property_id INTEGER NOT NULL,
		unit_name TEXT NOT NULL,
		rent_amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'unoccupied'
	)`,
	`CREATE TABLE lease_agreements (
		agreement_id INTEGER PRIMARY KEY,
		tenant_id INTEGER NOT NULL,
		unit_id INTEGER NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		docusign_envelope_id TEXT UNIQUE,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE lease_signatures (
		id INTEGER PRIMARY KEY,
		agreement_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		signed_at TIMESTAMP,
		UNIQUE (agreement_id, role)
	)`,
	`CREATE TABLE billings (
		billing_id INTEGER PRIMARY KEY,
		bill_id TEXT NOT NULL UNIQUE,
		lease_id INTEGER NOT NULL,
		unit_id INTEGER NOT NULL,
		billing_period DATE NOT NULL,
		total_water_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_electricity_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_amount_due NUMERIC(12,2) NOT NULL,
		due_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'unpaid',
		late_fee_applied_for DATE,
		late_fee_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		updated_at TIMESTAMP,
		UNIQUE (unit_id, billing_period)
	)`,
	`CREATE TABLE post_dated_checks (
		pdc_id INTEGER PRIMARY KEY,
		lease_id INTEGER NOT NULL,
		check_number TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		due_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	)`,
	`CREATE TABLE payment_methods (
		method_id INTEGER PRIMARY KEY,
		method_name TEXT NOT NULL UNIQUE
	)`,
	`INSERT INTO payment_methods (method_id, method_name) VALUES (1, 'pdc')`,
	`CREATE TABLE payments (
		payment_id INTEGER PRIMARY KEY,
		agreement_id INTEGER NOT NULL,
		bill_id TEXT,
		payment_type TEXT NOT NULL,
		amount_paid NUMERIC(12,2) NOT NULL,
		payment_method_id INTEGER NOT NULL,
		payment_status TEXT NOT NULL,
		receipt_reference TEXT NOT NULL UNIQUE,
		payment_date TIMESTAMP
	)`,
	`CREATE TABLE subscriptions (
		subscription_id INTEGER PRIMARY KEY,
		landlord_id INTEGER NOT NULL UNIQUE,
		plan_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_trial BOOLEAN NOT NULL DEFAULT 0,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		payment_status TEXT NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE subscription_history (
		id INTEGER PRIMARY KEY,
		landlord_id INTEGER NOT NULL,
		plan_name TEXT NOT NULL,
		is_trial BOOLEAN NOT NULL DEFAULT 0,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		reason TEXT NOT NULL,
		archived_at TIMESTAMP
	)`,
	`CREATE TABLE notifications (
		notification_id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		user_type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		url TEXT,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP
	)`,
	`CREATE TABLE push_subscriptions (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		endpoint TEXT NOT NULL UNIQUE,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at TIMESTAMP
	)`,
}
