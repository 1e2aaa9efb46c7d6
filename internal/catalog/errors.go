package catalog

import "errors"

// Catalog errors. Each maps to a distinct HTTP response.
var (
	ErrIncompleteBody   = errors.New("incomplete body")
	ErrServiceNotFound  = errors.New("service not found")
	ErrQueueNotFound    = errors.New("queue not found")
	ErrServiceExists    = errors.New("service already exists")
	ErrQueueExists      = errors.New("service queue already exists")
	ErrInvalidQueueType = errors.New("queue type does not exist")
)
