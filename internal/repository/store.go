// Package repository holds the persistence interfaces used by the services
// and their MongoDB implementations.
package repository

import (
	"context"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIdentifier matches the identifier against email or phone number.
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	// Update replaces the stored user. Returns ErrDuplicate on an email clash.
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

// TrackerPatch lists owner-editable tracker fields; nil leaves a field alone.
type TrackerPatch struct {
	Name        *string
	Icon        *string
	QRStyle     *string
	Status      *string
	Permissions *models.Permissions
}

type TrackerStore interface {
	// Create returns ErrDuplicate when the unique code is taken.
	Create(ctx context.Context, t *models.Tracker) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tracker, error)
	FindByCode(ctx context.Context, code string) (*models.Tracker, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Tracker, error)
	// Patch sets only the fields present in p on a tracker owned by owner and
	// returns the result. A QRStyle not owned yet is appended to the skins.
	Patch(ctx context.Context, id, owner primitive.ObjectID, p TrackerPatch) (*models.Tracker, error)
	// Delete removes the tracker only if owner owns it, else ErrNotFound.
	Delete(ctx context.Context, id, owner primitive.ObjectID) error
	// GrantSkin appends skin and makes it the active style. When skin.OrderID
	// is set the push happens at most once per order; granted is false if the
	// order had already been applied.
	GrantSkin(ctx context.Context, id primitive.ObjectID, skin models.Skin) (granted bool, err error)
}

type LogQuery struct {
	OwnerID     *primitive.ObjectID // nil lists every owner
	OnlyWithFix bool                // skip [0,0] "no GPS" entries
	Limit       int64
}

type LogStore interface {
	Create(ctx context.Context, l *models.Log) error
	// List returns logs newest first.
	List(ctx context.Context, q LogQuery) ([]models.Log, error)
	DeleteByTracker(ctx context.Context, trackerID primitive.ObjectID) error
}

type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	// ListByTracker returns up to limit messages older than before, oldest
	// first, and whether older ones remain.
	ListByTracker(ctx context.Context, trackerID primitive.ObjectID, before *time.Time, limit int64) ([]models.Message, bool, error)
	DeleteByTracker(ctx context.Context, trackerID primitive.ObjectID) error
}

type OrderQuery struct {
	UserID *primitive.ObjectID
	Status string
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, q OrderQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	SetSession(ctx context.Context, ids []primitive.ObjectID, sessionID string) error
	// MarkPaid flips an unpaid order to paid/processing. paid is false when
	// the order was already paid.
	MarkPaid(ctx context.Context, id primitive.ObjectID) (paid bool, err error)
}

type ContactStore interface {
	Create(ctx context.Context, c *models.Contact) error
	// List returns messages newest first.
	List(ctx context.Context) ([]models.Contact, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Contact, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SkinStore interface {
	Upsert(ctx context.Context, s *models.SkinDesign) error
	List(ctx context.Context) ([]models.SkinDesign, error)
}

type EventStore interface {
	Seen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, ev *models.ProcessedEvent) error
}
