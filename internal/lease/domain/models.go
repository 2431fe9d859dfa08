// Package domain models lease agreements and their per-role signatures.
package domain

import (
	"time"
)

// Lease is a lease agreement joined with the parties needed for notifications.
type Lease struct {
	ID         int64       `gorm:"column:agreement_id"`
	TenantID   int64       `gorm:"column:tenant_id"`
	LandlordID int64       `gorm:"column:landlord_id"`
	UnitID     int64       `gorm:"column:unit_id"`
	UnitName   string      `gorm:"column:unit_name"`
	StartDate  time.Time   `gorm:"column:start_date"`
	EndDate    time.Time   `gorm:"column:end_date"`
	Status     LeaseStatus `gorm:"column:status"`
	EnvelopeID *string     `gorm:"column:docusign_envelope_id"`
	UpdatedAt  *time.Time  `gorm:"column:updated_at"`
}

// UserIDFor returns the user holding role on this lease.
func (l Lease) UserIDFor(role SignerRole) int64 {
	if role == SignerRoleLandlord {
		return l.LandlordID
	}
	return l.TenantID
}

type Signature struct {
	ID          int64           `gorm:"column:id" json:"-"`
	AgreementID int64           `gorm:"column:agreement_id" json:"-"`
	Role        SignerRole      `gorm:"column:role" json:"role"`
	Status      SignatureStatus `gorm:"column:status" json:"status"`
	SignedAt    *time.Time      `gorm:"column:signed_at" json:"signed_at"`
}

// AllSigned reports whether every required signature row is signed.
func AllSigned(signatures []Signature) bool {
	if len(signatures) == 0 {
		return false
	}
	for _, sig := range signatures {
		if sig.Status != SignatureStatusSigned {
			return false
		}
	}
	return true
}
