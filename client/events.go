package client

import "time"

// RoomCreated answers CreateRoom.
type RoomCreated struct {
	RoomID string
	IsHost bool
}

// JoinResult answers JoinRoom. On success it carries the room's playback
// snapshot and full chat history.
type JoinResult struct {
	Success     bool
	IsHost      bool
	Error       string
	VideoID     string
	Playing     bool
	CurrentTime float64
	Messages    []ChatMessage
}

// VideoChange announces a new video for the room.
type VideoChange struct {
	VideoID string
}

// PlaybackEvent carries the position for play, pause and seek events.
type PlaybackEvent struct {
	CurrentTime float64
}

// ChatMessage is a chat line with its server-assigned id and timestamp.
type ChatMessage struct {
	ID        int64
	Text      string
	UserID    string
	Timestamp time.Time
}

// UserEvent reports a peer joining or leaving the room.
type UserEvent struct {
	UserID string
}
