package services

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/queue"
	"github.com/ooovooo/backend/internal/repository/repotest"
	"github.com/ooovooo/backend/pkg/utils"
	"go.uber.org/zap"
)

type emitted struct {
	Room  string
	Event string
	Data  interface{}
}

type fakeHub struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeHub) EmitToRoom(_ context.Context, room, event string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Room: room, Event: event, Data: data})
	return nil
}

func (f *fakeHub) rooms(event string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e.Room)
		}
	}
	return out
}

type fakeGateway struct {
	requests []CheckoutRequest
	event    *PaymentEvent
	parseErr error
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.requests = append(g.requests, req)
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*PaymentEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.OrderEvent
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, ev queue.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	store    *repotest.Store
	hub      *fakeHub
	gateway  *fakeGateway
	pub      *fakePublisher
	auth     *AuthService
	users    *UserService
	trackers *TrackerService
	public   *PublicService
	logs     *LogService
	chat     *ChatService
	orders   *OrderService
	phones   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	hub := &fakeHub{}
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	log := zap.NewNop()

	return &fixture{
		store:    store,
		hub:      hub,
		gateway:  gw,
		pub:      pub,
		auth:     NewAuthService(store.Users(), utils.NewTokenManager("test-secret", utils.TokenTTL)),
		users:    NewUserService(store.Users()),
		trackers: NewTrackerService(store.Trackers(), store.Logs(), store.Messages(), hub, log),
		public:   NewPublicService(store.Trackers(), store.Users(), store.Logs(), log),
		logs:     NewLogService(store.Trackers(), store.Logs()),
		chat:     NewChatService(store.Trackers(), store.Messages(), hub, log),
		orders: NewOrderService(store.Orders(), store.Trackers(), store.Events(), gw, pub, hub, CheckoutConfig{
			Currency:     "eur",
			SuccessURL:   "https://shop.example/success",
			CancelURL:    "https://shop.example/cancel",
			ImageBaseURL: "https://api.example",
		}, log),
	}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	phone := "+3612345"
	if f.phones > 0 {
		phone += strconv.Itoa(f.phones)
	}
	f.phones++
	u, err := f.auth.Register(context.Background(), RegisterInput{Name: "Anna", Email: email, PhoneNumber: phone, Password: "secret123"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (f *fixture) admin(t *testing.T) *models.User {
	t.Helper()
	u := f.user(t, "admin@example.com")
	u.Role = models.RoleAdmin
	if err := f.store.Users().Update(context.Background(), u); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	return u
}

func (f *fixture) tracker(t *testing.T, owner *models.User) *models.Tracker {
	t.Helper()
	tr, err := f.trackers.Create(context.Background(), owner.ID, CreateTrackerInput{Type: models.TrackerTypePet})
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	return tr
}
