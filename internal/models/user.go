package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleParent = "parent"
	RoleAdmin  = "admin"
)

// Supported UI languages. The first entry is the default.
var Languages = []string{"hu", "en", "de"}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"`
	PhoneNumber    string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Instagram      string             `bson:"instagram,omitempty" json:"instagram,omitempty"`
	Facebook       string             `bson:"facebook,omitempty" json:"facebook,omitempty"`
	Bio            string             `bson:"bio,omitempty" json:"bio,omitempty"`
	EmergencyPhone string             `bson:"emergencyPhone,omitempty" json:"emergencyPhone,omitempty"`
	Role           string             `bson:"role" json:"role"`
	IsPremium      bool               `bson:"isPremium" json:"isPremium"`
	Language       string             `bson:"language" json:"language"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidLanguage reports whether lang is one of the supported languages.
func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}
