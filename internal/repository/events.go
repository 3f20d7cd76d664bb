package repository

import (
	"context"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type EventsStore struct {
	coll *mongo.Collection
}

func NewEventsStore(coll *mongo.Collection) *EventsStore {
	return &EventsStore{coll: coll}
}

func (s *EventsStore) Seen(ctx context.Context, id string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *EventsStore) Record(ctx context.Context, ev *models.ProcessedEvent) error {
	_, err := s.coll.InsertOne(ctx, ev)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}
