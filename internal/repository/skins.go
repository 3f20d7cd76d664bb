package repository

import (
	"context"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SkinsStore struct {
	coll *mongo.Collection
}

func NewSkinsStore(coll *mongo.Collection) *SkinsStore {
	return &SkinsStore{coll: coll}
}

func (s *SkinsStore) Upsert(ctx context.Context, d *models.SkinDesign) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, d, options.Replace().SetUpsert(true))
	return err
}

func (s *SkinsStore) List(ctx context.Context) ([]models.SkinDesign, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	skins := []models.SkinDesign{}
	if err := cur.All(ctx, &skins); err != nil {
		return nil, err
	}
	return skins, nil
}
