// Package queue publishes order lifecycle events to RabbitMQ and runs the
// fulfillment consumer that picks them up.
package queue

import (
	"context"
	"time"
)

// OrderEventsQueue is the durable queue order events are routed to.
const OrderEventsQueue = "order.events"

const (
	OrderEventPaid          = "order.paid"
	OrderEventStatusChanged = "order.status_changed"
)

// OrderEvent is the message body published for the print shop.
type OrderEvent struct {
	Type            string    `json:"type"`
	OrderID         string    `json:"orderId"`
	UserID          string    `json:"userId"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"paymentStatus"`
	ProductType     string    `json:"productType"`
	Size            string    `json:"size"`
	UniqueCode      string    `json:"uniqueCode"`
	QRStyle         string    `json:"qrStyle"`
	TargetTrackerID string    `json:"targetTrackerId,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher sends order events somewhere durable.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
