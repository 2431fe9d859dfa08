// Package domain contains landlord plan subscriptions and their archived history.
package domain

import (
	"time"
)

// Subscription is a landlord's current plan. One row per landlord.
type Subscription struct {
	ID            int64      `gorm:"column:subscription_id;primaryKey"`
	LandlordID    int64      `gorm:"column:landlord_id"`
	PlanName      string     `gorm:"column:plan_name"`
	IsActive      bool       `gorm:"column:is_active"`
	IsTrial       bool       `gorm:"column:is_trial"`
	StartDate     time.Time  `gorm:"column:start_date"`
	EndDate       time.Time  `gorm:"column:end_date"`
	PaymentStatus string     `gorm:"column:payment_status"`
	UpdatedAt     *time.Time `gorm:"column:updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// HistoryEntry archives a plan window before it is replaced.
type HistoryEntry struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	LandlordID int64     `gorm:"column:landlord_id"`
	PlanName   string    `gorm:"column:plan_name"`
	IsTrial    bool      `gorm:"column:is_trial"`
	StartDate  time.Time `gorm:"column:start_date"`
	EndDate    time.Time `gorm:"column:end_date"`
	Reason     string    `gorm:"column:reason"`
	ArchivedAt time.Time `gorm:"column:archived_at"`
}

func (HistoryEntry) TableName() string { return "subscription_history" }

const (
	PaymentStatusPaid = "paid"
	ReasonExpired     = "expired"
)

type DowngradeResult struct {
	Scanned    int `json:"scanned"`
	Downgraded int `json:"downgraded"`
	Failed     int `json:"failed"`
}
