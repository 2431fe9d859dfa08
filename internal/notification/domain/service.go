package domain

import (
	"context"
	"errors"
	"net/http"
)

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// Notify stores an in-app notification and fans it out to the user's
	// push subscriptions. Delivery failures never fail the call.
	Notify(ctx context.Context, recipient Recipient, msg Message) (NotifyResult, error)
}

// Dispatcher delivers a payload to one push subscription and reports the
// endpoint's HTTP status code.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub PushSubscription, payload []byte) (int, error)
}

// IsGone reports whether the push service says the subscription no longer exists.
func IsGone(statusCode int) bool {
	return statusCode == http.StatusGone || statusCode == http.StatusNotFound
}

var (
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrEmptyMessage     = errors.New("empty_message")
	ErrDispatchFailed   = errors.New("push_dispatch_failed")
)
