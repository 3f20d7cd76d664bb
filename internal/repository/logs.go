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

type LogsStore struct {
	coll *mongo.Collection
}

func NewLogsStore(coll *mongo.Collection) *LogsStore {
	return &LogsStore{coll: coll}
}

func (s *LogsStore) Create(ctx context.Context, l *models.Log) error {
	if l.Date.IsZero() {
		l.Date = time.Now().UTC()
	}
	if l.Type == "" {
		l.Type = models.LogTypeScan
	}
	if l.Location.Type == "" {
		l.Location = models.NewGeoPoint(0, 0)
	}
	res, err := s.coll.InsertOne(ctx, l)
	if err != nil {
		return err
	}
	l.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *LogsStore) List(ctx context.Context, q LogQuery) ([]models.Log, error) {
	filter := bson.M{}
	if q.OwnerID != nil {
		filter["ownerId"] = *q.OwnerID
	}
	if q.OnlyWithFix {
		filter["location.coordinates"] = bson.M{"$ne": bson.A{0.0, 0.0}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	logs := []models.Log{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *LogsStore) DeleteByTracker(ctx context.Context, trackerID primitive.ObjectID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"trackerId": trackerID})
	return err
}
