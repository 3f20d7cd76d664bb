// Package repotest provides in-memory repository implementations for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store implements every repository interface over plain maps.
type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	trackers map[primitive.ObjectID]models.Tracker
	logs     []models.Log
	messages []models.Message
	orders   map[primitive.ObjectID]models.Order
	contacts map[primitive.ObjectID]models.Contact
	skins    map[string]models.SkinDesign
	events   map[string]models.ProcessedEvent
}

func New() *Store {
	return &Store{
		users:    map[primitive.ObjectID]models.User{},
		trackers: map[primitive.ObjectID]models.Tracker{},
		orders:   map[primitive.ObjectID]models.Order{},
		contacts: map[primitive.ObjectID]models.Contact{},
		skins:    map[string]models.SkinDesign{},
		events:   map[string]models.ProcessedEvent{},
	}
}

func (s *Store) Users() repository.UserStore       { return userStore{s} }
func (s *Store) Trackers() repository.TrackerStore { return trackerStore{s} }
func (s *Store) Logs() repository.LogStore         { return logStore{s} }
func (s *Store) Messages() repository.MessageStore { return messageStore{s} }
func (s *Store) Orders() repository.OrderStore     { return orderStore{s} }
func (s *Store) Contacts() repository.ContactStore { return contactStore{s} }
func (s *Store) Skins() repository.SkinStore       { return skinStore{s} }
func (s *Store) Events() repository.EventStore     { return eventStore{s} }

// LogCount and MessageCount expose raw sizes for assertions.
func (s *Store) LogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// --- users ---

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range u.s.users {
		if existing.Email == user.Email || samePhone(existing, *user) {
			return repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	u.s.users[user.ID] = *user
	return nil
}

func (u userStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u userStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range u.s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	identifier = strings.TrimSpace(identifier)
	for _, user := range u.s.users {
		if user.Email == strings.ToLower(identifier) || (user.PhoneNumber != "" && user.PhoneNumber == identifier) {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) Update(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for id, existing := range u.s.users {
		if id != user.ID && (existing.Email == user.Email || samePhone(existing, *user)) {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	u.s.users[user.ID] = *user
	return nil
}

func samePhone(a, b models.User) bool {
	return a.PhoneNumber != "" && a.PhoneNumber == b.PhoneNumber
}

func (u userStore) List(_ context.Context) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- trackers ---

type trackerStore struct{ s *Store }

func cloneTracker(t models.Tracker) *models.Tracker {
	t.Skins = append([]models.Skin(nil), t.Skins...)
	return &t
}

func (ts trackerStore) Create(_ context.Context, t *models.Tracker) error {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	for _, existing := range ts.s.trackers {
		if existing.UniqueCode == t.UniqueCode {
			return repository.ErrDuplicate
		}
	}
	t.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	ts.s.trackers[t.ID] = *cloneTracker(*t)
	return nil
}

func (ts trackerStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Tracker, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.trackers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTracker(t), nil
}

func (ts trackerStore) FindByCode(_ context.Context, code string) (*models.Tracker, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	for _, t := range ts.s.trackers {
		if t.UniqueCode == code {
			return cloneTracker(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (ts trackerStore) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Tracker, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	out := []models.Tracker{}
	for _, t := range ts.s.trackers {
		if t.Owner == owner {
			out = append(out, *cloneTracker(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (ts trackerStore) Patch(_ context.Context, id, owner primitive.ObjectID, p repository.TrackerPatch) (*models.Tracker, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.trackers[id]
	if !ok || t.Owner != owner {
		return nil, repository.ErrNotFound
	}
	t = *cloneTracker(t)
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Icon != nil {
		t.Icon = *p.Icon
	}
	if p.QRStyle != nil {
		if !t.HasSkin(*p.QRStyle) {
			t.Skins = append(t.Skins, models.Skin{StyleID: *p.QRStyle, PurchasedAt: time.Now().UTC()})
		}
		t.QRStyle = *p.QRStyle
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Permissions != nil {
		t.Permissions = *p.Permissions
	}
	t.UpdatedAt = time.Now().UTC()
	ts.s.trackers[id] = t
	return cloneTracker(t), nil
}

func (ts trackerStore) Delete(_ context.Context, id, owner primitive.ObjectID) error {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.trackers[id]
	if !ok || t.Owner != owner {
		return repository.ErrNotFound
	}
	delete(ts.s.trackers, id)
	return nil
}

func (ts trackerStore) GrantSkin(_ context.Context, id primitive.ObjectID, skin models.Skin) (bool, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.trackers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if t.HasSkinFromOrder(skin.OrderID) {
		return false, nil
	}
	if skin.PurchasedAt.IsZero() {
		skin.PurchasedAt = time.Now().UTC()
	}
	t.Skins = append(append([]models.Skin(nil), t.Skins...), skin)
	t.QRStyle = skin.StyleID
	t.UpdatedAt = time.Now().UTC()
	ts.s.trackers[id] = t
	return true, nil
}

// --- logs ---

type logStore struct{ s *Store }

func (ls logStore) Create(_ context.Context, l *models.Log) error {
	ls.s.mu.Lock()
	defer ls.s.mu.Unlock()
	l.ID = primitive.NewObjectID()
	if l.Date.IsZero() {
		l.Date = time.Now().UTC()
	}
	if l.Type == "" {
		l.Type = models.LogTypeScan
	}
	if l.Location.Type == "" {
		l.Location = models.NewGeoPoint(0, 0)
	}
	ls.s.logs = append(ls.s.logs, *l)
	return nil
}

func (ls logStore) List(_ context.Context, q repository.LogQuery) ([]models.Log, error) {
	ls.s.mu.Lock()
	defer ls.s.mu.Unlock()
	out := []models.Log{}
	for _, l := range ls.s.logs {
		if q.OwnerID != nil && l.OwnerID != *q.OwnerID {
			continue
		}
		if q.OnlyWithFix && !l.Location.HasFix() {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (ls logStore) DeleteByTracker(_ context.Context, trackerID primitive.ObjectID) error {
	ls.s.mu.Lock()
	defer ls.s.mu.Unlock()
	kept := ls.s.logs[:0]
	for _, l := range ls.s.logs {
		if l.TrackerID != trackerID {
			kept = append(kept, l)
		}
	}
	ls.s.logs = kept
	return nil
}

// --- messages ---

type messageStore struct{ s *Store }

func (ms messageStore) Create(_ context.Context, m *models.Message) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	ms.s.messages = append(ms.s.messages, *m)
	return nil
}

func (ms messageStore) ListByTracker(_ context.Context, trackerID primitive.ObjectID, before *time.Time, limit int64) ([]models.Message, bool, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	// messages are appended in creation order, so walk backwards for newest first
	var picked []models.Message
	for i := len(ms.s.messages) - 1; i >= 0; i-- {
		m := ms.s.messages[i]
		if m.TrackerID != trackerID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		picked = append(picked, m)
	}
	hasMore := int64(len(picked)) > limit
	if hasMore {
		picked = picked[:limit]
	}
	out := make([]models.Message, 0, len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		out = append(out, picked[i])
	}
	return out, hasMore, nil
}

func (ms messageStore) DeleteByTracker(_ context.Context, trackerID primitive.ObjectID) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	kept := ms.s.messages[:0]
	for _, m := range ms.s.messages {
		if m.TrackerID != trackerID {
			kept = append(kept, m)
		}
	}
	ms.s.messages = kept
	return nil
}

// --- orders ---

type orderStore struct{ s *Store }

func (st orderStore) Create(_ context.Context, o *models.Order) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	o.ID = primitive.NewObjectID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	st.s.orders[o.ID] = *o
	return nil
}

func (st orderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	o, ok := st.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (st orderStore) List(_ context.Context, q repository.OrderQuery) ([]models.Order, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	out := []models.Order{}
	for _, o := range st.s.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (st orderStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	o, ok := st.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	st.s.orders[id] = o
	return nil
}

func (st orderStore) SetSession(_ context.Context, ids []primitive.ObjectID, sessionID string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, id := range ids {
		if o, ok := st.s.orders[id]; ok {
			o.StripeSessionID = sessionID
			st.s.orders[id] = o
		}
	}
	return nil
}

func (st orderStore) MarkPaid(_ context.Context, id primitive.ObjectID) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	o, ok := st.s.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusPaid
	o.Status = models.OrderStatusProcessing
	st.s.orders[id] = o
	return true, nil
}

// --- contacts ---

type contactStore struct{ s *Store }

func (cs contactStore) Create(_ context.Context, c *models.Contact) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c.ID = primitive.NewObjectID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = models.ContactStatusNew
	}
	cs.s.contacts[c.ID] = *c
	return nil
}

func (cs contactStore) List(_ context.Context) ([]models.Contact, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	out := make([]models.Contact, 0, len(cs.s.contacts))
	for _, c := range cs.s.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (cs contactStore) SetStatus(_ context.Context, id primitive.ObjectID, status string) (*models.Contact, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Status = status
	cs.s.contacts[id] = c
	return &c, nil
}

func (cs contactStore) Delete(_ context.Context, id primitive.ObjectID) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	if _, ok := cs.s.contacts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(cs.s.contacts, id)
	return nil
}

// --- skins ---

type skinStore struct{ s *Store }

func (ss skinStore) Upsert(_ context.Context, d *models.SkinDesign) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	ss.s.skins[d.ID] = *d
	return nil
}

func (ss skinStore) List(_ context.Context) ([]models.SkinDesign, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	out := make([]models.SkinDesign, 0, len(ss.s.skins))
	for _, d := range ss.s.skins {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- events ---

type eventStore struct{ s *Store }

func (es eventStore) Seen(_ context.Context, id string) (bool, error) {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()
	_, ok := es.s.events[id]
	return ok, nil
}

func (es eventStore) Record(_ context.Context, ev *models.ProcessedEvent) error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()
	es.s.events[ev.ID] = *ev
	return nil
}
