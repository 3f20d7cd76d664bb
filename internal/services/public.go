package services

import (
	"context"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"go.uber.org/zap"
)

var ownerPlaceholders = map[string]string{
	"hu": "Tulajdonos",
	"en": "Owner",
	"de": "Besitzer",
}

type PublicService struct {
	trackers repository.TrackerStore
	users    repository.UserStore
	logs     repository.LogStore
	log      *zap.Logger
}

func NewPublicService(trackers repository.TrackerStore, users repository.UserStore, logs repository.LogStore, log *zap.Logger) *PublicService {
	return &PublicService{trackers: trackers, users: users, logs: logs, log: log}
}

type PublicTracker struct {
	ID          string             `json:"_id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Icon        string             `json:"icon"`
	UniqueCode  string             `json:"uniqueCode"`
	Status      string             `json:"status"`
	Permissions models.Permissions `json:"permissions"`
}

type PublicSocial struct {
	Instagram *string `json:"instagram"`
	Facebook  *string `json:"facebook"`
}

// PublicOwner contains only what the permission mask lets through; hidden
// fields serialize as null.
type PublicOwner struct {
	Name           string        `json:"name"`
	Phone          *string       `json:"phone"`
	EmergencyPhone string        `json:"emergencyPhone"`
	Email          *string       `json:"email"`
	Bio            string        `json:"bio"`
	Social         *PublicSocial `json:"social"`
}

type PublicProfile struct {
	ExtractedID string        `json:"extractedId"`
	Tracker     PublicTracker `json:"tracker"`
	Owner       PublicOwner   `json:"owner"`
}

// Lookup resolves a scan code to its masked public profile and records a
// best-effort SCAN log.
func (s *PublicService) Lookup(ctx context.Context, code, lang, userAgent string) (*PublicProfile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}
	t, err := s.trackers.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}
	owner, err := s.users.FindByID(ctx, t.Owner)
	if err != nil {
		return nil, err
	}

	icon := t.Icon
	if icon == "" {
		icon = models.DefaultTrackerIcon
	}
	profile := &PublicProfile{
		ExtractedID: t.ID.Hex(),
		Tracker: PublicTracker{
			ID:          t.ID.Hex(),
			Name:        t.Name,
			Type:        t.Type,
			Icon:        icon,
			UniqueCode:  t.UniqueCode,
			Status:      t.Status,
			Permissions: t.Permissions,
		},
		Owner: MaskOwner(owner, t.Permissions, lang),
	}

	scan := &models.Log{
		TrackerID: t.ID,
		OwnerID:   t.Owner,
		Type:      models.LogTypeScan,
		Location:  models.NewGeoPoint(0, 0),
		UserAgent: userAgent,
	}
	if err := s.logs.Create(ctx, scan); err != nil {
		s.log.Warn("scan log failed", zap.String("tracker_id", t.ID.Hex()), zap.Error(err))
	}
	return profile, nil
}

// MaskOwner applies the permission mask to the owner's contact fields.
func MaskOwner(u *models.User, p models.Permissions, lang string) PublicOwner {
	out := PublicOwner{Bio: u.Bio}

	if p.ShowName {
		out.Name = u.Name
	} else {
		out.Name = OwnerPlaceholder(lang)
	}
	if p.ShowPhone {
		out.Phone = optional(u.PhoneNumber)
		out.EmergencyPhone = u.EmergencyPhone
	}
	if p.ShowEmail {
		out.Email = optional(u.Email)
	}

	showInstagram := p.ShowSocial || p.ShowInstagram
	showFacebook := p.ShowSocial || p.ShowFacebook
	if showInstagram || showFacebook {
		social := &PublicSocial{}
		if showInstagram {
			social.Instagram = optional(u.Instagram)
		}
		if showFacebook {
			social.Facebook = optional(u.Facebook)
		}
		out.Social = social
	}
	return out
}

// OwnerPlaceholder returns the localized stand-in for a hidden owner name.
func OwnerPlaceholder(lang string) string {
	if v, ok := ownerPlaceholders[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return v
	}
	return ownerPlaceholders["hu"]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
