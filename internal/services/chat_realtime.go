package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event names pushed to sockets.
const (
	EventReceiveMessage = "receive_message"
	EventTrackerCreated = "tracker_created"
	EventTrackerUpdated = "tracker_updated"
	EventTrackerDeleted = "tracker_deleted"
	EventError          = "error"
	EventPong           = "pong"
)

const (
	roomChannelPrefix = "chat:room:"
	clientSendBuffer  = 64
)

// Frame is the {event, data} envelope exchanged with socket clients.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame.
func NewFrame(event string, data interface{}) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Broadcaster pushes events to socket rooms.
type Broadcaster interface {
	EmitToRoom(ctx context.Context, room, event string, data interface{}) error
}

// UserRoom is the private room every authenticated socket of a user joins.
func UserRoom(userID string) string {
	return "user:" + userID
}

// Client is one socket connection registered with the hub.
type Client struct {
	ID     uuid.UUID
	UserID string // empty for anonymous finders

	send      chan []byte
	closeOnce sync.Once
	mu        sync.RWMutex
	rooms     map[string]struct{}
}

// Send is drained by the connection's writer goroutine. It is closed when
// the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ChatHub tracks room membership for this instance. With Redis configured,
// every emit goes through pub/sub so all instances fan out the same event.
type ChatHub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	redis   *redis.Client
	log     *zap.Logger
}

func NewChatHub(rdb *redis.Client, log *zap.Logger) *ChatHub {
	return &ChatHub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		redis:   rdb,
		log:     log,
	}
}

// Register adds a connection. Authenticated users auto-join their private room.
func (h *ChatHub) Register(userID string) *Client {
	c := &Client{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan []byte, clientSendBuffer),
		rooms:  make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if userID != "" {
		h.Join(c, UserRoom(userID))
	}
	return c
}

// Unregister removes the client from every room and closes its send channel.
func (h *ChatHub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *ChatHub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.mu.RLock()
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.mu.RUnlock()
	c.close()
}

func (h *ChatHub) Join(c *Client, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (h *ChatHub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// InRoom reports whether the client has joined room.
func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// RoomSize returns the number of local members of room.
func (h *ChatHub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitToRoom delivers an event to every member of room on every instance.
func (h *ChatHub) EmitToRoom(ctx context.Context, room, event string, data interface{}) error {
	frame, err := NewFrame(event, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if h.redis != nil {
		return h.redis.Publish(ctx, roomChannelPrefix+room, payload).Err()
	}
	h.fanOut(room, payload)
	return nil
}

// SendTo replies to a single local client. It reports false when the client
// is gone or its buffer is full.
func (h *ChatHub) SendTo(c *Client, event string, data interface{}) bool {
	frame, err := NewFrame(event, data)
	if err != nil {
		return false
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// fanOut sends to local members without blocking. A client whose buffer
// is full is dropped.
func (h *ChatHub) fanOut(room string, payload []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	h.drop(slow)
}

func (h *ChatHub) drop(slow []*Client) {
	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		h.log.Warn("dropping slow socket", zap.String("client_id", c.ID.String()))
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

// Run consumes the Redis pub/sub channels until ctx is done, reconnecting
// with capped exponential backoff. Without Redis it returns immediately.
func (h *ChatHub) Run(ctx context.Context) {
	if h.redis == nil {
		h.log.Info("Redis not configured; chat fan-out is local to this instance")
		return
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := h.subscribe(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		h.log.Warn("chat subscriber disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (h *ChatHub) subscribe(ctx context.Context, onMessage func()) error {
	pubsub := h.redis.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.log.Info("chat Redis subscriber started", zap.String("pattern", roomChannelPrefix+"*"))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		h.fanOut(strings.TrimPrefix(msg.Channel, roomChannelPrefix), []byte(msg.Payload))
	}
}
