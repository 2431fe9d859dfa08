package domain

import (
	"context"
	"errors"
)

type Service interface {
	// DowngradeExpired resets every subscription whose end date has passed
	// to the free plan, archiving the plan it replaces.
	DowngradeExpired(ctx context.Context) (DowngradeResult, error)
}

var ErrSubscriptionNotFound = errors.New("subscription_not_found")
