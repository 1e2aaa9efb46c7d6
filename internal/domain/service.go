package domain

import "time"

// Service represents an external system registered to publish notifications.
// A service exclusively owns its queues.
type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MarketID  *string   `json:"marketId"`
	Endpoint  *string   `json:"endpoint"`
	Queues    []Queue   `json:"queues"`
	CreatedAt time.Time `json:"-"`
}

// Queue is a named notification channel belonging to a service.
type Queue struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"-"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Endpoint  *string   `json:"endpoint"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"-"`
}

// QueueTarget is an active queue resolved for delivery, together with the
// endpoint of the service owning it.
type QueueTarget struct {
	Queue
	ServiceName     string
	ServiceEndpoint *string
}

// DeliveryEndpoint returns the queue endpoint, falling back to the service endpoint.
func (t QueueTarget) DeliveryEndpoint() string {
	if t.Endpoint != nil && *t.Endpoint != "" {
		return *t.Endpoint
	}
	if t.ServiceEndpoint != nil {
		return *t.ServiceEndpoint
	}
	return ""
}

// DefaultQueueTypes lists the event types a queue may carry when none are configured.
var DefaultQueueTypes = []string{
	"offering.new",
	"offering.update",
	"offering.delete",
	"provider.new",
	"consumer.new",
	"agreement.accepted",
	"agreement.rejected",
	"agreement.update",
	"agreement.termination",
	"agreement.claim",
	"agreement.pending",
}
