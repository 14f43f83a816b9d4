package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"watchparty/internal/metrics"
	"watchparty/internal/protocol"
)

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket
// connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub routes events to room members. Two fan-out modes: Broadcast delivers
// to every member including the originator (chat), BroadcastExcept skips
// the originator (playback, presence). Delivery is fire-and-forget;
// a full send buffer drops the frame rather than blocking the room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*Client),
	}
}

// Register adds a client to a room's pool.
func (h *Hub) Register(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][c.ConnID] = c
}

// Unregister removes a client from a room's pool. The Send channel stays
// open: the session owns it and may re-register into another room.
func (h *Hub) Unregister(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pool, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(pool, connID)
	if len(pool) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast delivers the event to every member of the room.
func (h *Hub) Broadcast(roomID string, env protocol.Envelope) {
	h.fanOut(roomID, "", env)
}

// BroadcastExcept delivers the event to every member except the sender.
func (h *Hub) BroadcastExcept(roomID, senderID string, env protocol.Envelope) {
	h.fanOut(roomID, senderID, env)
}

func (h *Hub) fanOut(roomID, skipID string, env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("type", env.Type).Msg("marshal broadcast event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.rooms[roomID] {
		if id == skipID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Slow consumer; drop rather than stall the room.
			log.Warn().Str("room", roomID).Str("conn_id", id).Str("type", env.Type).Msg("send buffer full, dropping frame")
		}
	}
	metrics.EventsBroadcast.WithLabelValues(env.Type).Inc()
}
