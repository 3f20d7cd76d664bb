package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
)

func TestChatSend_CodeAndIDResolveToSameTracker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	tr := f.tracker(t, owner)

	byCode, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: " found your dog ", SenderType: "finder"}, nil)
	if err != nil {
		t.Fatalf("finder send failed: %v", err)
	}
	byID, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.ID.Hex(), Message: "thank you!"}, owner)
	if err != nil {
		t.Fatalf("owner send failed: %v", err)
	}
	if byCode.TrackerID != tr.ID || byID.TrackerID != tr.ID {
		t.Fatalf("messages stored under different trackers")
	}
	if byCode.SenderID != models.SenderIDFinder || byCode.SenderType != models.SenderTypeFinder || byCode.Message != "found your dog" {
		t.Fatalf("unexpected finder message %+v", byCode)
	}
	if byID.SenderID != owner.ID.Hex() || byID.SenderType != models.SenderTypeUser {
		t.Fatalf("unexpected owner message %+v", byID)
	}

	rooms := f.hub.rooms(EventReceiveMessage)
	if len(rooms) != 4 || rooms[0] != tr.UniqueCode || rooms[1] != tr.ID.Hex() {
		t.Fatalf("expected emits to code and id rooms, got %v", rooms)
	}

	msgs, hasMore, err := f.chat.History(ctx, tr.UniqueCode, nil, nil, 0)
	if err != nil || hasMore || len(msgs) != 2 {
		t.Fatalf("history wrong: %v %v %d", err, hasMore, len(msgs))
	}
	if msgs[0].ID != byCode.ID {
		t.Fatalf("expected oldest first")
	}
}

func TestChatSend_AnonymousIsAlwaysFinder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	stranger := f.user(t, "eve@example.com")
	tr := f.tracker(t, owner)

	msg, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "hello"}, nil)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.SenderID != models.SenderIDFinder || msg.SenderType != models.SenderTypeFinder {
		t.Fatalf("anonymous message should be stored as finder, got %+v", msg)
	}

	// claiming to be the owner changes nothing
	msg, err = f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "it's me", SenderType: models.SenderTypeUser}, stranger)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.SenderType != models.SenderTypeFinder {
		t.Fatalf("signed-in stranger should be a finder, got %+v", msg)
	}
}

func TestChatSend_ClosedChatRefusesEveryFinder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	stranger := f.user(t, "eve@example.com")
	admin := f.admin(t)
	tr := f.tracker(t, owner)

	closed := false
	if _, err := f.trackers.Update(ctx, owner.ID, tr.ID, UpdateTrackerInput{Permissions: &PermissionsInput{AllowChat: &closed}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "hi anyway"}, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous sender without senderType: expected forbidden, got %v", err)
	}
	if _, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.ID.Hex(), Message: "hi"}, stranger); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: expected forbidden, got %v", err)
	}
	if f.store.MessageCount() != 0 {
		t.Fatalf("refused messages were stored")
	}

	if msg, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "owner note"}, owner); err != nil || msg.SenderType != models.SenderTypeUser {
		t.Fatalf("owner must still write: %+v %v", msg, err)
	}
	if msg, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "support"}, admin); err != nil || msg.SenderType != models.SenderTypeAdmin {
		t.Fatalf("admin must still write: %+v %v", msg, err)
	}

	if err := f.chat.AuthorizeRelay(ctx, tr.UniqueCode, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("relay for finder on closed chat: expected forbidden, got %v", err)
	}
	if err := f.chat.AuthorizeRelay(ctx, strings.ToLower(tr.UniqueCode), owner); err != nil {
		t.Fatalf("relay for owner: %v", err)
	}

	open := true
	if _, err := f.trackers.Update(ctx, owner.ID, tr.ID, UpdateTrackerInput{Permissions: &PermissionsInput{AllowChat: &open}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.chat.AuthorizeRelay(ctx, tr.UniqueCode, nil); err != nil {
		t.Fatalf("relay for finder on open chat: %v", err)
	}
}

func TestChatSend_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	tr := f.tracker(t, owner)

	if _, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "   "}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected empty message rejection, got %v", err)
	}
	if _, err := f.chat.Send(ctx, SendMessageInput{TrackerID: "NOPE234567", Message: "hi"}, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	closed := false
	if _, err := f.trackers.Update(ctx, owner.ID, tr.ID, UpdateTrackerInput{Permissions: &PermissionsInput{AllowChat: &closed}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.chat.Send(ctx, SendMessageInput{TrackerID: tr.UniqueCode, Message: "hi", SenderType: "finder"}, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden when chat is closed, got %v", err)
	}
	if f.store.MessageCount() != 0 {
		t.Fatalf("rejected messages were stored")
	}
}

func TestChatHistory_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	tr := f.tracker(t, owner)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		m := &models.Message{TrackerID: tr.ID, SenderID: "Finder", SenderType: "finder", Message: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		_ = f.store.Messages().Create(ctx, m)
	}
	page, hasMore, err := f.chat.History(ctx, tr.UniqueCode, nil, nil, 2)
	if err != nil || !hasMore || len(page) != 2 {
		t.Fatalf("first page wrong: %v %v %d", err, hasMore, len(page))
	}
	before := page[0].CreatedAt
	older, hasMore, err := f.chat.History(ctx, tr.UniqueCode, nil, &before, 10)
	if err != nil || hasMore || len(older) != 3 {
		t.Fatalf("second page wrong: %v %v %d", err, hasMore, len(older))
	}
}

func TestChatHistory_ByIDNeedsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	stranger := f.user(t, "eve@example.com")
	tr := f.tracker(t, owner)

	if _, _, err := f.chat.History(ctx, tr.ID.Hex(), nil, nil, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous by id: expected unauthorized, got %v", err)
	}
	if _, _, err := f.chat.History(ctx, tr.ID.Hex(), stranger, nil, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger by id: expected forbidden, got %v", err)
	}
	if _, _, err := f.chat.History(ctx, tr.ID.Hex(), owner, nil, 0); err != nil {
		t.Fatalf("owner by id: %v", err)
	}
	if _, _, err := f.chat.History(ctx, strings.ToLower(tr.UniqueCode), nil, nil, 0); err != nil {
		t.Fatalf("anonymous by code: %v", err)
	}
}

func TestAuthorizeRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "anna@example.com")
	stranger := f.user(t, "eve@example.com")
	admin := f.admin(t)
	tr := f.tracker(t, owner)

	if room, err := f.chat.AuthorizeRoom(ctx, "  "+tr.UniqueCode, nil); err != nil || room != tr.UniqueCode {
		t.Fatalf("code room should be open: %q %v", room, err)
	}
	if _, err := f.chat.AuthorizeRoom(ctx, tr.ID.Hex(), nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for anonymous id room, got %v", err)
	}
	if _, err := f.chat.AuthorizeRoom(ctx, tr.ID.Hex(), stranger); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	for _, u := range []*models.User{owner, admin} {
		if room, err := f.chat.AuthorizeRoom(ctx, tr.ID.Hex(), u); err != nil || room != tr.ID.Hex() {
			t.Fatalf("expected access for %s: %v", u.Email, err)
		}
	}
	if _, err := f.chat.AuthorizeRoom(ctx, UserRoom(owner.ID.Hex()), owner); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user rooms must not be joined explicitly, got %v", err)
	}
	if _, err := f.chat.AuthorizeRoom(ctx, "NOPE234567", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
