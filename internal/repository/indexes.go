package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection    = "users"
	TrackersCollection = "trackers"
	LogsCollection     = "logs"
	MessagesCollection = "messages"
	OrdersCollection   = "orders"
	ContactsCollection = "contacts"
	SkinsCollection    = "skins"
	EventsCollection   = "stripe_events"
)

// EnsureIndexes creates the indexes every store relies on.
// Called on startup from main after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("idx_email").SetUnique(true)},
			{Keys: bson.D{{Key: "phoneNumber", Value: 1}}, Options: options.Index().SetName("idx_phone").SetUnique(true).SetSparse(true)},
		},
		TrackersCollection: {
			{Keys: bson.D{{Key: "uniqueCode", Value: 1}}, Options: options.Index().SetName("idx_code").SetUnique(true)},
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_owner_created")},
		},
		LogsCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}, Options: options.Index().SetName("idx_location")},
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("idx_owner_date")},
			{Keys: bson.D{{Key: "trackerId", Value: 1}}, Options: options.Index().SetName("idx_tracker")},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "trackerId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_tracker_created")},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_user_created")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("idx_status")},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
