package domain

import (
	"fmt"
	"strings"
)

type LeaseStatus string

const (
	LeaseStatusDraft     LeaseStatus = "draft"
	LeaseStatusPending   LeaseStatus = "pending"
	LeaseStatusActive    LeaseStatus = "active"
	LeaseStatusCompleted LeaseStatus = "completed"
	LeaseStatusExpired   LeaseStatus = "expired"
	LeaseStatusCancelled LeaseStatus = "cancelled"
)

var leaseTransitions = map[LeaseStatus][]LeaseStatus{
	LeaseStatusDraft:   {LeaseStatusPending, LeaseStatusActive, LeaseStatusCancelled},
	LeaseStatusPending: {LeaseStatusPending, LeaseStatusActive, LeaseStatusCancelled},
	LeaseStatusActive:  {LeaseStatusActive, LeaseStatusCompleted, LeaseStatusExpired},
}

// Transition is the single authority on lease status changes.
func Transition(from, to LeaseStatus) (LeaseStatus, error) {
	for _, allowed := range leaseTransitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: lease %s -> %s", ErrInvalidTransition, from, to)
}

type SignatureStatus string

const (
	SignatureStatusPending SignatureStatus = "pending"
	SignatureStatusSigned  SignatureStatus = "signed"
)

// Sign moves a signature to signed. Signing twice is a no-op.
func (s SignatureStatus) Sign() (SignatureStatus, bool, error) {
	switch s {
	case SignatureStatusPending:
		return SignatureStatusSigned, true, nil
	case SignatureStatusSigned:
		return SignatureStatusSigned, false, nil
	}
	return s, false, fmt.Errorf("%w: signature %s -> %s", ErrInvalidTransition, s, SignatureStatusSigned)
}

type SignerRole string

const (
	SignerRoleLandlord SignerRole = "landlord"
	SignerRoleTenant   SignerRole = "tenant"
)

// ParseSignerRole accepts any casing of landlord or tenant.
func ParseSignerRole(raw string) (SignerRole, error) {
	switch role := SignerRole(strings.ToLower(strings.TrimSpace(raw))); role {
	case SignerRoleLandlord, SignerRoleTenant:
		return role, nil
	}
	return "", ErrInvalidRole
}

// Counterpart is the other party of a two-party lease.
func (r SignerRole) Counterpart() SignerRole {
	if r == SignerRoleLandlord {
		return SignerRoleTenant
	}
	return SignerRoleLandlord
}

type UnitStatus string

const (
	UnitStatusOccupied   UnitStatus = "occupied"
	UnitStatusUnoccupied UnitStatus = "unoccupied"
)
