package services

import (
	"context"
	"strings"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	maxMessageLength    = 2000
)

type ChatService struct {
	trackers repository.TrackerStore
	messages repository.MessageStore
	hub      Broadcaster
	log      *zap.Logger
}

func NewChatService(trackers repository.TrackerStore, messages repository.MessageStore, hub Broadcaster, log *zap.Logger) *ChatService {
	return &ChatService{trackers: trackers, messages: messages, hub: hub, log: log}
}

type SendMessageInput struct {
	TrackerID  string `json:"trackerId"`
	Message    string `json:"message"`
	SenderType string `json:"senderType"` // ignored; the sender is derived from the caller
}

// Send persists a message and pushes it to the short-code room and the
// database-id room of the tracker. sender is nil for anonymous callers.
// Anyone but the owner or an admin is stored as the finder and needs
// allowChat; the client-supplied senderType is not trusted.
// Broadcast failures are logged; the stored message is still returned.
func (s *ChatService) Send(ctx context.Context, in SendMessageInput, sender *models.User) (*models.Message, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, invalid("message cannot be empty")
	}
	if len(text) > maxMessageLength {
		return nil, invalid("message is too long")
	}

	t, err := ResolveTracker(ctx, s.trackers, in.TrackerID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{TrackerID: t.ID, Message: text}
	if speaksForOwner(t, sender) {
		msg.SenderID = sender.ID.Hex()
		msg.SenderType = models.SenderTypeUser
		if sender.ID != t.Owner {
			msg.SenderType = models.SenderTypeAdmin
		}
	} else {
		if !t.Permissions.AllowChat {
			return nil, ErrForbidden
		}
		msg.SenderID = models.SenderIDFinder
		msg.SenderType = models.SenderTypeFinder
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	for _, room := range []string{t.UniqueCode, t.ID.Hex()} {
		if err := s.hub.EmitToRoom(ctx, room, EventReceiveMessage, msg); err != nil {
			s.log.Warn("chat broadcast failed", zap.String("room", room), zap.Error(err))
		}
	}
	return msg, nil
}

// AuthorizeRelay checks that user may push a socket message into room.
// Finders are refused while the tracker has chat turned off.
func (s *ChatService) AuthorizeRelay(ctx context.Context, room string, user *models.User) error {
	t, err := ResolveTracker(ctx, s.trackers, room)
	if err != nil {
		return err
	}
	if speaksForOwner(t, user) || t.Permissions.AllowChat {
		return nil
	}
	return ErrForbidden
}

func speaksForOwner(t *models.Tracker, user *models.User) bool {
	return user != nil && (user.ID == t.Owner || user.IsAdmin())
}

// History returns messages oldest first. before pages backwards in time.
// Reading by database id follows the same rule as joining that room.
func (s *ChatService) History(ctx context.Context, ref string, user *models.User, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	t, err := ResolveTracker(ctx, s.trackers, ref)
	if err != nil {
		return nil, false, err
	}
	if strings.EqualFold(strings.TrimSpace(ref), t.ID.Hex()) {
		if user == nil {
			return nil, false, ErrUnauthorized
		}
		if !speaksForOwner(t, user) {
			return nil, false, ErrForbidden
		}
	}
	return s.messages.ListByTracker(ctx, t.ID, before, limit)
}

// AuthorizeRoom decides whether user may join room and returns the
// canonical room name. Short-code rooms are open to anyone holding the
// code. Database-id rooms are limited to the owner and admins. Private user
// rooms are never joined explicitly.
func (s *ChatService) AuthorizeRoom(ctx context.Context, room string, user *models.User) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", invalid("room is required")
	}
	if strings.HasPrefix(room, "user:") {
		return "", ErrForbidden
	}

	if oid, err := primitive.ObjectIDFromHex(room); err == nil {
		t, err := s.trackers.FindByID(ctx, oid)
		if err != nil {
			return "", err
		}
		if user == nil {
			return "", ErrUnauthorized
		}
		if t.Owner != user.ID && !user.IsAdmin() {
			return "", ErrForbidden
		}
		return t.ID.Hex(), nil
	}

	t, err := s.trackers.FindByCode(ctx, strings.ToUpper(room))
	if err != nil {
		return "", err
	}
	return t.UniqueCode, nil
}
