package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrdersStore struct {
	coll *mongo.Collection
}

func NewOrdersStore(coll *mongo.Collection) *OrdersStore {
	return &OrdersStore{coll: coll}
}

func (s *OrdersStore) Create(ctx context.Context, o *models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	res, err := s.coll.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *OrdersStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *OrdersStore) List(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	filter := bson.M{}
	if q.UserID != nil {
		filter["userId"] = *q.UserID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrdersStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *OrdersStore) SetSession(ctx context.Context, ids []primitive.ObjectID, sessionID string) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"stripeSessionId": sessionID}},
	)
	return err
}

func (s *OrdersStore) MarkPaid(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": bson.M{"$ne": models.PaymentStatusPaid}},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentStatusPaid, "status": models.OrderStatusProcessing}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
