package domain

import "time"

// Subscription binds a user to a notification category.
type Subscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Category  string    `json:"category"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"-"`
}
