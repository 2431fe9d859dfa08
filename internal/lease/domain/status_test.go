package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseTransition(t *testing.T) {
	allowed := [][2]LeaseStatus{
		{LeaseStatusDraft, LeaseStatusPending},
		{LeaseStatusDraft, LeaseStatusActive},
		{LeaseStatusPending, LeaseStatusPending},
		{LeaseStatusPending, LeaseStatusActive},
		{LeaseStatusActive, LeaseStatusActive},
		{LeaseStatusActive, LeaseStatusCompleted},
		{LeaseStatusActive, LeaseStatusExpired},
		{LeaseStatusDraft, LeaseStatusCancelled},
		{LeaseStatusPending, LeaseStatusCancelled},
	}
	for _, pair := range allowed {
		got, err := Transition(pair[0], pair[1])
		require.NoError(t, err, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, pair[1], got)
	}

	rejected := [][2]LeaseStatus{
		{LeaseStatusActive, LeaseStatusPending},
		{LeaseStatusCancelled, LeaseStatusActive},
		{LeaseStatusExpired, LeaseStatusPending},
		{LeaseStatusCompleted, LeaseStatusActive},
	}
	for _, pair := range rejected {
		got, err := Transition(pair[0], pair[1])
		assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", pair[0], pair[1])
		assert.Equal(t, pair[0], got)
	}
}

func TestSignatureSign(t *testing.T) {
	next, changed, err := SignatureStatusPending.Sign()
	require.NoError(t, err)
	assert.Equal(t, SignatureStatusSigned, next)
	assert.True(t, changed)

	next, changed, err = SignatureStatusSigned.Sign()
	require.NoError(t, err)
	assert.Equal(t, SignatureStatusSigned, next)
	assert.False(t, changed)

	_, _, err = SignatureStatus("void").Sign()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseSignerRole(t *testing.T) {
	role, err := ParseSignerRole(" Landlord ")
	require.NoError(t, err)
	assert.Equal(t, SignerRoleLandlord, role)
	assert.Equal(t, SignerRoleTenant, role.Counterpart())
	assert.Equal(t, SignerRoleLandlord, SignerRoleTenant.Counterpart())

	_, err = ParseSignerRole("broker")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAllSigned(t *testing.T) {
	assert.False(t, AllSigned(nil))
	assert.False(t, AllSigned([]Signature{{Status: SignatureStatusSigned}, {Status: SignatureStatusPending}}))
	assert.True(t, AllSigned([]Signature{{Status: SignatureStatusSigned}, {Status: SignatureStatusSigned}}))
}
