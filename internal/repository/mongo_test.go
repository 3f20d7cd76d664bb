package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	db := client.Database("ooovooo_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return db
}

func TestUsersStore_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewUsersStore(db.Collection(UsersCollection))

	if err := store.Create(ctx, &models.User{Name: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := store.Create(ctx, &models.User{Name: "B", Email: "A@example.com "}); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	u, err := store.FindByIdentifier(ctx, "a@example.com")
	if err != nil || u.Name != "A" {
		t.Fatalf("lookup by identifier failed: %v", err)
	}
}

func TestTrackersStore_GrantSkinOncePerOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewTrackersStore(db.Collection(TrackersCollection))

	tr := &models.Tracker{Owner: primitive.NewObjectID(), UniqueCode: "ABCDEFGH23", QRStyle: "classic",
		Skins: []models.Skin{{StyleID: "classic"}}}
	if err := store.Create(ctx, tr); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	skin := models.Skin{StyleID: "animals_panda", OrderID: "o1"}
	for i := 0; i < 2; i++ {
		if _, err := store.GrantSkin(ctx, tr.ID, skin); err != nil {
			t.Fatalf("grant %d failed: %v", i, err)
		}
	}

	got, err := store.FindByID(ctx, tr.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(got.Skins) != 2 || got.QRStyle != "animals_panda" {
		t.Fatalf("expected one granted skin, got %+v", got.Skins)
	}

	if _, err := store.GrantSkin(ctx, primitive.NewObjectID(), skin); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing tracker, got %v", err)
	}
}

func TestTrackersStore_PatchKeepsSkins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewTrackersStore(db.Collection(TrackersCollection))

	owner := primitive.NewObjectID()
	tr := &models.Tracker{Owner: owner, UniqueCode: "PATCHME234", QRStyle: "classic",
		Skins: []models.Skin{{StyleID: "classic"}}, Permissions: models.DefaultPermissions()}
	if err := store.Create(ctx, tr); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// granted after the caller built its patch
	if _, err := store.GrantSkin(ctx, tr.ID, models.Skin{StyleID: "space_rocket", OrderID: "o1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	name, style := "Bodri", "classic"
	got, err := store.Patch(ctx, tr.ID, owner, TrackerPatch{Name: &name, QRStyle: &style})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if got.Name != name || got.QRStyle != "classic" || len(got.Skins) != 2 || !got.HasSkinFromOrder("o1") {
		t.Fatalf("unexpected tracker after patch: %+v", got)
	}

	fresh := "animals_panda"
	if got, err = store.Patch(ctx, tr.ID, owner, TrackerPatch{QRStyle: &fresh}); err != nil || len(got.Skins) != 3 {
		t.Fatalf("new style should be appended once: %+v (%v)", got, err)
	}
	if _, err := store.Patch(ctx, tr.ID, primitive.NewObjectID(), TrackerPatch{Name: &name}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}
}

func TestUsersStore_PhoneUniqueWhenSet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewUsersStore(db.Collection(UsersCollection))

	for _, u := range []*models.User{
		{Name: "A", Email: "a@example.com", PhoneNumber: "+3611"},
		{Name: "B", Email: "b@example.com"},
		{Name: "C", Email: "c@example.com"},
	} {
		if err := store.Create(ctx, u); err != nil {
			t.Fatalf("create %s failed: %v", u.Email, err)
		}
	}
	if err := store.Create(ctx, &models.User{Name: "D", Email: "d@example.com", PhoneNumber: "+3611"}); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for a taken phone, got %v", err)
	}
}

func TestMessagesStore_Pagination(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewMessagesStore(db.Collection(MessagesCollection))
	trackerID := primitive.NewObjectID()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		m := &models.Message{TrackerID: trackerID, SenderID: "Finder", SenderType: "finder",
			Message: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	msgs, hasMore, err := store.ListByTracker(ctx, trackerID, nil, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 3 || !hasMore {
		t.Fatalf("expected 3 messages with more, got %d more=%v", len(msgs), hasMore)
	}
	if !msgs[0].CreatedAt.Before(msgs[2].CreatedAt) {
		t.Fatalf("expected oldest first")
	}
}

func TestOrdersStore_MarkPaidOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := NewOrdersStore(db.Collection(OrdersCollection))

	o := &models.Order{UserID: primitive.NewObjectID(), Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusUnpaid}
	if err := store.Create(ctx, o); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	first, err := store.MarkPaid(ctx, o.ID)
	if err != nil || !first {
		t.Fatalf("expected first MarkPaid to flip, got %v %v", first, err)
	}
	second, err := store.MarkPaid(ctx, o.ID)
	if err != nil || second {
		t.Fatalf("expected second MarkPaid to be a no-op, got %v %v", second, err)
	}
}
