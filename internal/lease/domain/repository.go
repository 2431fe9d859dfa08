package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByEnvelopeID(ctx context.Context, db *gorm.DB, envelopeID string) (*Lease, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, agreementID int64) (*Lease, error)
	FindSignatureForUpdate(ctx context.Context, db *gorm.DB, agreementID int64, role SignerRole) (*Signature, error)
	MarkSignatureSigned(ctx context.Context, db *gorm.DB, agreementID int64, role SignerRole, signedAt time.Time) (bool, error)
	ListSignatures(ctx context.Context, db *gorm.DB, agreementID int64) ([]Signature, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, agreementID int64, status LeaseStatus, now time.Time) error
	UpdateUnitStatus(ctx context.Context, db *gorm.DB, unitID int64, status UnitStatus) error
}
