package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"

	DefaultOrderSize    = "N/A"
	DefaultOrderQRStyle = "default"
)

type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	CustomerName    string              `bson:"customerName" json:"customerName"`
	CustomerEmail   string              `bson:"customerEmail" json:"customerEmail"`
	TargetTrackerID *primitive.ObjectID `bson:"targetTrackerId" json:"targetTrackerId"`
	ProductType     string              `bson:"productType" json:"productType"`
	Size            string              `bson:"size" json:"size"`
	UniqueCode      string              `bson:"uniqueCode" json:"uniqueCode"`
	QRStyle         string              `bson:"qrStyle" json:"qrStyle"`
	TotalPrice      float64             `bson:"totalPrice" json:"totalPrice"`
	Status          string              `bson:"status" json:"status"`
	PaymentStatus   string              `bson:"paymentStatus" json:"paymentStatus"`
	StripeSessionID string              `bson:"stripeSessionId,omitempty" json:"stripeSessionId,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}

func ValidOrderStatus(s string) bool {
	return s == OrderStatusPending || s == OrderStatusProcessing || s == OrderStatusShipped
}

// ProcessedEvent records a payment webhook event that has been applied.
type ProcessedEvent struct {
	ID          string    `bson:"_id" json:"id"`
	Type        string    `bson:"type" json:"type"`
	ProcessedAt time.Time `bson:"processedAt" json:"processedAt"`
}
