package rooms

import "time"

// Room is one synchronization scope: a member set, the authoritative
// playback snapshot, and the chat history. All fields are guarded by the
// owning Registry; callers only ever see copies via Snapshot.
type Room struct {
	Code      string
	HostID    string
	Members   map[string]bool
	Playback  Playback
	History   []ChatMessage
	CreatedAt time.Time

	nextMessageID int64
}

// ChatMessage is immutable once appended to a room's history.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the room state handed to a newly joined member.
type Snapshot struct {
	Code     string
	HostID   string
	Playback Playback
	History  []ChatMessage
}
