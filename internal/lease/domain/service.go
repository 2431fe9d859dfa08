package domain

import (
	"context"
	"errors"
)

type MarkSignedRequest struct {
	EnvelopeID string `json:"envelopeId"`
	UserType   string `json:"userType"`
}

type MarkSignedResult struct {
	AgreementID   int64       `json:"-"`
	Status        LeaseStatus `json:"status"`
	Message       string      `json:"message"`
	Signatures    []Signature `json:"signatures"`
	AlreadySigned bool        `json:"-"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// MarkSigned records the signer's signature and activates the lease once
	// every required role has signed.
	MarkSigned(ctx context.Context, req MarkSignedRequest) (MarkSignedResult, error)
}

var (
	ErrMissingFields     = errors.New("missing_fields")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrLeaseNotFound     = errors.New("lease_not_found")
	ErrSignatureNotFound = errors.New("signature_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
)
