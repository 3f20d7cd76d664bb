package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TrackerTypeCar     = "car"
	TrackerTypePet     = "pet"
	TrackerTypeBag     = "bag"
	TrackerTypeKey     = "key"
	TrackerTypeGeneric = "generic"

	TrackerStatusActive = "active"
	TrackerStatusLost   = "lost"

	DefaultTrackerIcon = "📍"
	DefaultQRStyle     = "classic"
)

var TrackerTypes = []string{TrackerTypeCar, TrackerTypePet, TrackerTypeBag, TrackerTypeKey, TrackerTypeGeneric}

// Permissions is the owner-controlled mask applied on the public scan page.
type Permissions struct {
	ShowName      bool `bson:"showName" json:"showName"`
	ShowPhone     bool `bson:"showPhone" json:"showPhone"`
	ShowEmail     bool `bson:"showEmail" json:"showEmail"`
	ShowSocial    bool `bson:"showSocial" json:"showSocial"`
	ShowInstagram bool `bson:"showInstagram" json:"showInstagram"`
	ShowFacebook  bool `bson:"showFacebook" json:"showFacebook"`
	AllowChat     bool `bson:"allowChat" json:"allowChat"`
}

// DefaultPermissions hides everything but keeps the finder chat open.
func DefaultPermissions() Permissions {
	return Permissions{AllowChat: true}
}

// Skin is a QR design owned by a tracker.
type Skin struct {
	StyleID     string    `bson:"styleId" json:"styleId"`
	PurchasedAt time.Time `bson:"purchasedAt" json:"purchasedAt"`
	OrderID     string    `bson:"orderId,omitempty" json:"orderId,omitempty"`
}

type Tracker struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	Name        string             `bson:"name" json:"name"`
	Icon        string             `bson:"icon" json:"icon"`
	Type        string             `bson:"type" json:"type"`
	QRStyle     string             `bson:"qrStyle" json:"qrStyle"`
	Skins       []Skin             `bson:"skins" json:"skins"`
	UniqueCode  string             `bson:"uniqueCode" json:"uniqueCode"`
	Status      string             `bson:"status" json:"status"`
	Permissions Permissions        `bson:"permissions" json:"permissions"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasSkin reports whether styleID is already in the tracker's skin list.
func (t *Tracker) HasSkin(styleID string) bool {
	for _, s := range t.Skins {
		if s.StyleID == styleID {
			return true
		}
	}
	return false
}

// HasSkinFromOrder reports whether the order already granted a skin here.
func (t *Tracker) HasSkinFromOrder(orderID string) bool {
	if orderID == "" {
		return false
	}
	for _, s := range t.Skins {
		if s.OrderID == orderID {
			return true
		}
	}
	return false
}

func ValidTrackerType(t string) bool {
	for _, v := range TrackerTypes {
		if v == t {
			return true
		}
	}
	return false
}

func ValidTrackerStatus(s string) bool {
	return s == TrackerStatusActive || s == TrackerStatusLost
}
