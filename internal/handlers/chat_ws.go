package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ooovooo/backend/internal/middleware"
	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/internal/services"
	"go.uber.org/zap"
)

// Client → server socket events.
const (
	wsJoinChat    = "join_chat"
	wsLeaveChat   = "leave_chat"
	wsSendMessage = "send_message"
	wsPing        = "ping"
)

const (
	wsReadLimit   = 64 * 1024
	wsReadTimeout = 90 * time.Second
	wsWriteWait   = 10 * time.Second
	wsPingPeriod  = 30 * time.Second
)

// CORS for WebSocket is handled at the HTTP layer; finders connect from
// arbitrary scan pages.
var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatWebSocket serves GET /ws. A token (bearer header or ?token=) is
// optional: finders connect anonymously, owners authenticate and auto-join
// their private room.
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	var user *models.User
	if token := middleware.TokenFromRequest(r); token != "" {
		if u, err := h.svc.Auth.Authenticate(r.Context(), token); err == nil {
			user = u
		}
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	userID := ""
	if user != nil {
		userID = user.ID.Hex()
	}
	hub := h.svc.Hub
	client := hub.Register(userID)
	defer hub.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.log.Debug("socket connected", zap.String("client_id", client.ID.String()), zap.String("user_id", userID))

	// Writer goroutine: the only place that writes to conn.
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		defer conn.Close()
		for {
			select {
			case payload, ok := <-client.Send():
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var frame services.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			hub.SendTo(client, services.EventError, socketError("malformed frame"))
			continue
		}

		switch frame.Event {
		case wsJoinChat:
			room, err := h.svc.Chat.AuthorizeRoom(ctx, roomFromData(frame.Data), user)
			if err != nil {
				hub.SendTo(client, services.EventError, socketError(joinFailure(err)))
				continue
			}
			hub.Join(client, room)
		case wsLeaveChat:
			room := roomFromData(frame.Data)
			hub.Leave(client, room)
			hub.Leave(client, strings.ToUpper(room))
		case wsSendMessage:
			room := roomFromData(frame.Data)
			if !client.InRoom(room) {
				room = strings.ToUpper(room)
			}
			if room == "" || !client.InRoom(room) {
				hub.SendTo(client, services.EventError, socketError("join the chat before sending"))
				continue
			}
			if err := h.svc.Chat.AuthorizeRelay(ctx, room, user); err != nil {
				hub.SendTo(client, services.EventError, socketError(relayFailure(err)))
				continue
			}
			if err := hub.EmitToRoom(ctx, room, services.EventReceiveMessage, frame.Data); err != nil {
				h.log.Warn("socket relay failed", zap.String("room", room), zap.Error(err))
			}
		case wsPing:
			hub.SendTo(client, services.EventPong, nil)
		default:
			// Ignore unknown events
		}
	}
}

// roomFromData accepts a bare string or an object with trackerId.
func roomFromData(data json.RawMessage) string {
	var room string
	if err := json.Unmarshal(data, &room); err == nil {
		return strings.TrimSpace(room)
	}
	var obj struct {
		TrackerID string `json:"trackerId"`
		Room      string `json:"room"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.TrackerID != "" {
			return strings.TrimSpace(obj.TrackerID)
		}
		return strings.TrimSpace(obj.Room)
	}
	return ""
}

func socketError(message string) map[string]string {
	return map[string]string{"message": message}
}

func relayFailure(err error) string {
	if errors.Is(err, services.ErrForbidden) {
		return "chat is turned off for this tracker"
	}
	return joinFailure(err)
}

func joinFailure(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "tracker not found"
	case errors.Is(err, services.ErrUnauthorized):
		return "authentication required for this room"
	case errors.Is(err, services.ErrForbidden):
		return "not allowed to join this room"
	case errors.Is(err, services.ErrInvalidInput):
		return "room is required"
	default:
		return "could not join room"
	}
}
