// Package protocol defines the JSON events exchanged between the server
// and clients over the WebSocket. Every frame is an Envelope; request
// events that expect an answer get it as a reply event on the same
// connection (room-created, join-result).
package protocol

import (
	"encoding/json"
	"time"
)

// Client to server.
const (
	TypeCreateRoom  = "create-room"
	TypeJoinRoom    = "join-room"
	TypeVideoChange = "video-change"
	TypePlay        = "play"
	TypePause       = "pause"
	TypeSeek        = "seek"
	TypeChatMessage = "chat-message"
)

// Server to client only.
const (
	TypeRoomCreated = "room-created"
	TypeJoinResult  = "join-result"
	TypeUserJoined  = "user-joined"
	TypeUserLeft    = "user-left"
)

// Envelope frames every event in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload for the wire.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	env := Envelope{Type: eventType}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

// JoinRoomPayload asks to join an existing room.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// RoomCreatedPayload answers create-room.
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
	IsHost bool   `json:"isHost"`
}

// VideoState is the playback snapshot carried by join-result.
type VideoState struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"currentTime"`
}

// JoinResultPayload answers join-room. On success it carries everything a
// new member needs to catch up; on failure only Error is set.
type JoinResultPayload struct {
	Success    bool          `json:"success"`
	IsHost     bool          `json:"isHost,omitempty"`
	Error      string        `json:"error,omitempty"`
	VideoID    string        `json:"videoId,omitempty"`
	VideoState *VideoState   `json:"videoState,omitempty"`
	Messages   []ChatMessage `json:"messages,omitempty"`
}

// VideoChangePayload loads a new video for the room.
type VideoChangePayload struct {
	VideoID string `json:"videoId"`
}

// PlaybackPayload carries the reporting client's position for
// play, pause, and seek.
type PlaybackPayload struct {
	CurrentTime float64 `json:"currentTime"`
}

// ChatSendPayload is the client's side of chat-message.
type ChatSendPayload struct {
	Text string `json:"text"`
}

// ChatMessage is the broadcast side of chat-message, with the
// server-assigned id and timestamp.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// UserPayload identifies the subject of user-joined and user-left.
type UserPayload struct {
	UserID string `json:"userId"`
}
