package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrSubscriptionNotFound is returned when trying to unsubscribe a non-existent subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
