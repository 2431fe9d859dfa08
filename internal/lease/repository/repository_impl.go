package repository

import (
	"context"
	"time"

	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() leasedomain.Repository {
	return &repo{}
}

const leaseSelect = `SELECT la.agreement_id, la.tenant_id, p.landlord_id, la.unit_id, u.unit_name,
	 la.start_date, la.end_date, la.status, la.docusign_envelope_id, la.updated_at
	 FROM lease_agreements la
	 JOIN units u ON u.unit_id = la.unit_id
	 JOIN properties p ON p.property_id = u.property_id`

func (r *repo) FindByEnvelopeID(ctx context.Context, db *gorm.DB, envelopeID string) (*leasedomain.Lease, error) {
	var lease leasedomain.Lease
	err := db.WithContext(ctx).Raw(
		leaseSelect+` WHERE la.docusign_envelope_id = ?`,
		envelopeID,
	).Scan(&lease).Error
	if err != nil {
		return nil, err
	}
	if lease.ID == 0 {
		return nil, nil
	}
	return &lease, nil
}

// FindByIDForUpdate locks the agreement row only; party columns are left empty.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, agreementID int64) (*leasedomain.Lease, error) {
	var lease leasedomain.Lease
	err := db.WithContext(ctx).Raw(
		`SELECT agreement_id, tenant_id, unit_id, start_date, end_date, status,
		 docusign_envelope_id, updated_at
		 FROM lease_agreements WHERE agreement_id = ? FOR UPDATE`,
		agreementID,
	).Scan(&lease).Error
	if err != nil {
		return nil, err
	}
	if lease.ID == 0 {
		return nil, nil
	}
	return &lease, nil
}

func (r *repo) FindSignatureForUpdate(ctx context.Context, db *gorm.DB, agreementID int64, role leasedomain.SignerRole) (*leasedomain.Signature, error) {
	var sig leasedomain.Signature
	err := db.WithContext(ctx).Raw(
		`SELECT id, agreement_id, role, status, signed_at
		 FROM lease_signatures
		 WHERE agreement_id = ? AND LOWER(role) = ?
		 FOR UPDATE`,
		agreementID,
		string(role),
	).Scan(&sig).Error
	if err != nil {
		return nil, err
	}
	if sig.ID == 0 {
		return nil, nil
	}
	return &sig, nil
}

func (r *repo) MarkSignatureSigned(ctx context.Context, db *gorm.DB, agreementID int64, role leasedomain.SignerRole, signedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE lease_signatures SET status = ?, signed_at = ?
		 WHERE agreement_id = ? AND LOWER(role) = ? AND status = ?`,
		leasedomain.SignatureStatusSigned,
		signedAt,
		agreementID,
		string(role),
		leasedomain.SignatureStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListSignatures(ctx context.Context, db *gorm.DB, agreementID int64) ([]leasedomain.Signature, error) {
	var signatures []leasedomain.Signature
	err := db.WithContext(ctx).Raw(
		`SELECT id, agreement_id, LOWER(role) AS role, status, signed_at
		 FROM lease_signatures
		 WHERE agreement_id = ?
		 ORDER BY id ASC`,
		agreementID,
	).Scan(&signatures).Error
	if err != nil {
		return nil, err
	}
	return signatures, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, agreementID int64, status leasedomain.LeaseStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lease_agreements SET status = ?, updated_at = ? WHERE agreement_id = ?`,
		status,
		now,
		agreementID,
	).Error
}

func (r *repo) UpdateUnitStatus(ctx context.Context, db *gorm.DB, unitID int64, status leasedomain.UnitStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE units SET status = ? WHERE unit_id = ?`,
		status,
		unitID,
	).Error
}
