package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LogTypeScan         = "SCAN"
	LogTypeMessage      = "MESSAGE"
	LogTypeStatusChange = "STATUS_CHANGE"
)

// GeoPoint is a GeoJSON point. Coordinates are [lng, lat]; [0, 0] means
// the scan carried no GPS fix.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// HasFix reports whether the point carries real coordinates.
func (p GeoPoint) HasFix() bool {
	return len(p.Coordinates) == 2 && !(p.Coordinates[0] == 0 && p.Coordinates[1] == 0)
}

type Log struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TrackerID primitive.ObjectID `bson:"trackerId" json:"trackerId"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Type      string             `bson:"type" json:"type"`
	Location  GeoPoint           `bson:"location" json:"location"`
	UserAgent string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Date      time.Time          `bson:"date" json:"date"`
}
