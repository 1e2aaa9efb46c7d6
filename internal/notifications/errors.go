package notifications

import "errors"

// Subscription errors.
var (
	ErrIncompleteBody       = errors.New("incomplete body")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionExists   = errors.New("subscription to category already exists")
)
