package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxCodeAttempts = 10

type TrackerService struct {
	trackers repository.TrackerStore
	logs     repository.LogStore
	messages repository.MessageStore
	hub      Broadcaster
	log      *zap.Logger
	newCode  func() (string, error)
}

func NewTrackerService(trackers repository.TrackerStore, logs repository.LogStore, messages repository.MessageStore, hub Broadcaster, log *zap.Logger) *TrackerService {
	return &TrackerService{
		trackers: trackers,
		logs:     logs,
		messages: messages,
		hub:      hub,
		log:      log,
		newCode:  utils.GenerateCode,
	}
}

// ResolveTracker accepts either the short scan code or the database id.
func ResolveTracker(ctx context.Context, trackers repository.TrackerStore, ref string) (*models.Tracker, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, invalid("tracker id is required")
	}
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		t, err := trackers.FindByID(ctx, oid)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return t, err
		}
	}
	return trackers.FindByCode(ctx, strings.ToUpper(ref))
}

type CreateTrackerInput struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Type    string `json:"type"`
	QRStyle string `json:"qrStyle"`
}

func (s *TrackerService) Create(ctx context.Context, owner primitive.ObjectID, in CreateTrackerInput) (*models.Tracker, error) {
	trackerType := strings.TrimSpace(in.Type)
	if trackerType == "" {
		trackerType = models.TrackerTypeGeneric
	}
	if !models.ValidTrackerType(trackerType) {
		return nil, invalid("invalid tracker type")
	}
	style := strings.TrimSpace(in.QRStyle)
	if style == "" {
		style = models.DefaultQRStyle
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = models.DefaultTrackerIcon
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = "oooVooo-" + code
		}
		t := &models.Tracker{
			Owner:       owner,
			Name:        name,
			Icon:        icon,
			Type:        trackerType,
			QRStyle:     style,
			Skins:       []models.Skin{{StyleID: style, PurchasedAt: time.Now().UTC()}},
			UniqueCode:  code,
			Status:      models.TrackerStatusActive,
			Permissions: models.DefaultPermissions(),
		}
		err = s.trackers.Create(ctx, t)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.emit(ctx, owner, EventTrackerCreated, t)
		return t, nil
	}
	return nil, fmt.Errorf("could not allocate a unique code after %d attempts", maxCodeAttempts)
}

func (s *TrackerService) ListMine(ctx context.Context, owner primitive.ObjectID) ([]models.Tracker, error) {
	return s.trackers.ListByOwner(ctx, owner)
}

// PermissionsInput replaces the whole mask. A missing allowChat stays true.
type PermissionsInput struct {
	ShowName      *bool `json:"showName"`
	ShowPhone     *bool `json:"showPhone"`
	ShowEmail     *bool `json:"showEmail"`
	ShowSocial    *bool `json:"showSocial"`
	ShowInstagram *bool `json:"showInstagram"`
	ShowFacebook  *bool `json:"showFacebook"`
	AllowChat     *bool `json:"allowChat"`
}

func (p PermissionsInput) Resolve() models.Permissions {
	val := func(b *bool, def bool) bool {
		if b == nil {
			return def
		}
		return *b
	}
	return models.Permissions{
		ShowName:      val(p.ShowName, false),
		ShowPhone:     val(p.ShowPhone, false),
		ShowEmail:     val(p.ShowEmail, false),
		ShowSocial:    val(p.ShowSocial, false),
		ShowInstagram: val(p.ShowInstagram, false),
		ShowFacebook:  val(p.ShowFacebook, false),
		AllowChat:     val(p.AllowChat, true),
	}
}

type UpdateTrackerInput struct {
	Name        *string           `json:"name"`
	Icon        *string           `json:"icon"`
	QRStyle     *string           `json:"qrStyle"`
	Status      *string           `json:"status"`
	Permissions *PermissionsInput `json:"permissions"`
}

// Update applies the owner's edits field by field, so a skin granted by a
// concurrent payment is never overwritten.
func (s *TrackerService) Update(ctx context.Context, owner, id primitive.ObjectID, in UpdateTrackerInput) (*models.Tracker, error) {
	current, err := s.ownedTracker(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	var patch repository.TrackerPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		patch.Name = &name
	}
	if in.Icon != nil {
		if icon := strings.TrimSpace(*in.Icon); icon != "" {
			patch.Icon = &icon
		}
	}
	if in.Permissions != nil {
		perms := in.Permissions.Resolve()
		patch.Permissions = &perms
	}
	if in.QRStyle != nil {
		style := strings.TrimSpace(*in.QRStyle)
		if style == "" {
			return nil, invalid("qrStyle cannot be empty")
		}
		patch.QRStyle = &style
	}
	statusChanged := false
	if in.Status != nil && *in.Status != current.Status {
		if !models.ValidTrackerStatus(*in.Status) {
			return nil, invalid("invalid tracker status")
		}
		patch.Status = in.Status
		statusChanged = true
	}

	t, err := s.trackers.Patch(ctx, id, owner, patch)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		entry := &models.Log{
			TrackerID: t.ID,
			OwnerID:   t.Owner,
			Type:      models.LogTypeStatusChange,
			Location:  models.NewGeoPoint(0, 0),
			Message:   "status: " + t.Status,
		}
		if err := s.logs.Create(ctx, entry); err != nil {
			s.log.Warn("status change log failed", zap.String("tracker_id", t.ID.Hex()), zap.Error(err))
		}
	}

	s.emit(ctx, owner, EventTrackerUpdated, t)
	return t, nil
}

// Delete removes the tracker with its logs and messages.
func (s *TrackerService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	if err := s.trackers.Delete(ctx, id, owner); err != nil {
		return err
	}
	if err := s.logs.DeleteByTracker(ctx, id); err != nil {
		return fmt.Errorf("delete logs: %w", err)
	}
	if err := s.messages.DeleteByTracker(ctx, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	s.emit(ctx, owner, EventTrackerDeleted, map[string]string{"_id": id.Hex()})
	return nil
}

// AddSkin grants a design to an owned tracker and makes it active.
func (s *TrackerService) AddSkin(ctx context.Context, owner, id primitive.ObjectID, styleID, orderID string) (*models.Tracker, error) {
	styleID = strings.TrimSpace(styleID)
	if styleID == "" {
		return nil, invalid("styleId is required")
	}
	current, err := s.ownedTracker(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if current.HasSkinFromOrder(orderID) {
		return current, nil
	}
	if _, err := s.trackers.GrantSkin(ctx, id, models.Skin{StyleID: styleID, OrderID: orderID}); err != nil {
		return nil, err
	}
	t, err := s.trackers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, owner, EventTrackerUpdated, t)
	return t, nil
}

func (s *TrackerService) ownedTracker(ctx context.Context, owner, id primitive.ObjectID) (*models.Tracker, error) {
	t, err := s.trackers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Owner != owner {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (s *TrackerService) emit(ctx context.Context, owner primitive.ObjectID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.EmitToRoom(ctx, UserRoom(owner.Hex()), event, data); err != nil {
		s.log.Warn("tracker broadcast failed", zap.String("event", event), zap.Error(err))
	}
}
