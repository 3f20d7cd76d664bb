package models

import "time"

// SkinDesign is a purchasable QR artwork in the catalog. ID doubles as the
// styleId stored on trackers and orders (e.g. "animals_panda").
type SkinDesign struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Category  string    `bson:"category" json:"category"`
	ImageURL  string    `bson:"imageUrl" json:"img"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
