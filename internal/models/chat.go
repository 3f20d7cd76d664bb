package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SenderTypeUser   = "user"
	SenderTypeFinder = "finder"
	SenderTypeAdmin  = "admin"

	SenderIDFinder = "Finder"
)

// Message is one chat line on a tracker. Messages are append-only and are
// removed only with their tracker.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TrackerID  primitive.ObjectID `bson:"trackerId" json:"trackerId"`
	SenderID   string             `bson:"senderId" json:"senderId"`
	SenderType string             `bson:"senderType" json:"senderType"`
	Message    string             `bson:"message" json:"message"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
