package repository

import (
	"context"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessagesStore struct {
	coll *mongo.Collection
}

func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

func (s *MessagesStore) Create(ctx context.Context, m *models.Message) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	res, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		return err
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListByTracker paginates on createdAt, fetching one extra row to learn
// whether older messages remain.
func (s *MessagesStore) ListByTracker(ctx context.Context, trackerID primitive.ObjectID, before *time.Time, limit int64) ([]models.Message, bool, error) {
	filter := bson.M{"trackerId": trackerID}
	if before != nil {
		filter["createdAt"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}
	reverseMessages(msgs)
	return msgs, hasMore, nil
}

func (s *MessagesStore) DeleteByTracker(ctx context.Context, trackerID primitive.ObjectID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"trackerId": trackerID})
	return err
}

func reverseMessages(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
