package domain

import (
	"errors"
	"fmt"
)

// BillingStatus represents lifecycle states for a monthly billing row.
type BillingStatus string

const (
	BillingStatusUnpaid    BillingStatus = "unpaid"
	BillingStatusOverdue   BillingStatus = "overdue"
	BillingStatusPaid      BillingStatus = "paid"
	BillingStatusFinalized BillingStatus = "finalized"
)

// IsTerminal reports whether the billing no longer accepts amount changes.
func (s BillingStatus) IsTerminal() bool {
	return s == BillingStatusPaid || s == BillingStatusFinalized
}

func (s BillingStatus) Valid() bool {
	switch s {
	case BillingStatusUnpaid, BillingStatusOverdue, BillingStatusPaid, BillingStatusFinalized:
		return true
	}
	return false
}

var allowedTransitions = map[BillingStatus][]BillingStatus{
	BillingStatusUnpaid:  {BillingStatusOverdue, BillingStatusPaid},
	BillingStatusOverdue: {BillingStatusOverdue, BillingStatusPaid},
	BillingStatusPaid:    {BillingStatusFinalized},
}

// Transition validates a status change and returns the target status.
func Transition(from, to BillingStatus) (BillingStatus, error) {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: billing %s -> %s", ErrInvalidTransition, from, to)
}

// PDCStatus is the state of a post-dated check. Read-only for billing.
type PDCStatus string

const (
	PDCStatusPending PDCStatus = "pending"
	PDCStatusCleared PDCStatus = "cleared"
	PDCStatusBounced PDCStatus = "bounced"
)

// LateFeeType selects how a property's late fee amount is interpreted.
type LateFeeType string

const (
	LateFeeTypeFlat       LateFeeType = "flat"
	LateFeeTypePercentage LateFeeType = "percentage"
)

func (t LateFeeType) Valid() bool {
	return t == LateFeeTypeFlat || t == LateFeeTypePercentage
}

const (
	PaymentTypeRent        = "rent"
	PaymentStatusConfirmed = "confirmed"
	BillCodePrefix         = "BILL"
	PDCReceiptPrefix       = "PDC"
)

var (
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrBillingNotFound       = errors.New("billing_not_found")
	ErrPaymentMethodNotFound = errors.New("payment_method_not_found")
)
