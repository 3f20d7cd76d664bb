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

type TrackersStore struct {
	coll *mongo.Collection
}

func NewTrackersStore(coll *mongo.Collection) *TrackersStore {
	return &TrackersStore{coll: coll}
}

func (s *TrackersStore) Create(ctx context.Context, t *models.Tracker) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	res, err := s.coll.InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *TrackersStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tracker, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *TrackersStore) FindByCode(ctx context.Context, code string) (*models.Tracker, error) {
	return s.findOne(ctx, bson.M{"uniqueCode": code})
}

func (s *TrackersStore) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Tracker, error) {
	cur, err := s.coll.Find(ctx, bson.M{"owner": owner}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	trackers := []models.Tracker{}
	if err := cur.All(ctx, &trackers); err != nil {
		return nil, err
	}
	return trackers, nil
}

func (s *TrackersStore) Patch(ctx context.Context, id, owner primitive.ObjectID, p TrackerPatch) (*models.Tracker, error) {
	now := time.Now().UTC()
	if p.QRStyle != nil {
		filter := bson.M{"_id": id, "owner": owner, "skins.styleId": bson.M{"$ne": *p.QRStyle}}
		skin := models.Skin{StyleID: *p.QRStyle, PurchasedAt: now}
		if _, err := s.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"skins": skin}}); err != nil {
			return nil, err
		}
	}

	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Icon != nil {
		set["icon"] = *p.Icon
	}
	if p.QRStyle != nil {
		set["qrStyle"] = *p.QRStyle
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Permissions != nil {
		set["permissions"] = *p.Permissions
	}

	var t models.Tracker
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "owner": owner}, bson.M{"$set": set}, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TrackersStore) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TrackersStore) GrantSkin(ctx context.Context, id primitive.ObjectID, skin models.Skin) (bool, error) {
	if skin.PurchasedAt.IsZero() {
		skin.PurchasedAt = time.Now().UTC()
	}
	filter := bson.M{"_id": id}
	if skin.OrderID != "" {
		// the $ne guard makes a replayed grant for the same order a no-op
		filter["skins.orderId"] = bson.M{"$ne": skin.OrderID}
	}
	update := bson.M{
		"$push": bson.M{"skins": skin},
		"$set":  bson.M{"qrStyle": skin.StyleID, "updatedAt": time.Now().UTC()},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *TrackersStore) findOne(ctx context.Context, filter bson.M) (*models.Tracker, error) {
	var t models.Tracker
	if err := s.coll.FindOne(ctx, filter).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
