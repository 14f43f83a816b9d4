package rooms

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrRoomNotFound is returned when an operation targets a code with no
// live room behind it.
var ErrRoomNotFound = errors.New("room not found")

// ErrEmptyMessage is returned for chat text that is empty after trimming.
var ErrEmptyMessage = errors.New("empty message text")

// Registry owns the live rooms. Every mutation runs under one lock, so
// each operation is a single transaction: a room is registered iff it has
// at least one member, with no observable empty state in between.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	clock clockwork.Clock
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		rooms: make(map[string]*Room),
		clock: clock,
	}
}

// Create registers a new room with connID as host and sole member.
// Try up to 10 times to generate an unused code.
func (r *Registry) Create(connID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < 10; i++ {
		code, err := GenerateCode()
		if err != nil {
			return Snapshot{}, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := r.rooms[code]; exists {
			continue
		}

		room := &Room{
			Code:      code,
			HostID:    connID,
			Members:   map[string]bool{connID: true},
			CreatedAt: r.clock.Now(),
		}
		r.rooms[code] = room

		log.Info().Str("room", code).Str("conn_id", connID).Msg("room created")
		return snapshot(room), nil
	}
	return Snapshot{}, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

// Join adds connID to the room's members and returns the snapshot a new
// member needs to catch up: the playback state and the full chat history.
func (r *Registry) Join(code, connID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	room.Members[connID] = true

	log.Info().Str("room", code).Str("conn_id", connID).Int("members", len(room.Members)).Msg("member joined")
	return snapshot(room), nil
}

// Leave removes connID from the room. When the last member leaves the
// room is destroyed in the same step. Reports whether the room still
// exists afterwards.
func (r *Registry) Leave(code, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return false
	}
	delete(room.Members, connID)
	if len(room.Members) == 0 {
		delete(r.rooms, code)
		log.Info().Str("room", code).Msg("room destroyed")
		return false
	}

	log.Info().Str("room", code).Str("conn_id", connID).Int("members", len(room.Members)).Msg("member left")
	return true
}

// Get returns a snapshot of the room.
func (r *Registry) Get(code string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	return snapshot(room), nil
}

// MemberCount reports the number of members, or 0 for a dead room.
func (r *Registry) MemberCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return 0
	}
	return len(room.Members)
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SetVideo loads a new video into the room, paused at position 0.
func (r *Registry) SetVideo(code, videoID string) error {
	return r.mutatePlayback(code, func(p *Playback) {
		p.Load(videoID, r.clock.Now())
	})
}

// Play records the reporting client's position and marks the room playing.
func (r *Registry) Play(code string, currentTime float64) error {
	return r.mutatePlayback(code, func(p *Playback) {
		p.Play(currentTime, r.clock.Now())
	})
}

// Pause records the reporting client's position and marks the room paused.
func (r *Registry) Pause(code string, currentTime float64) error {
	return r.mutatePlayback(code, func(p *Playback) {
		p.Pause(currentTime, r.clock.Now())
	})
}

// Seek updates the position without changing the play state.
func (r *Registry) Seek(code string, currentTime float64) error {
	return r.mutatePlayback(code, func(p *Playback) {
		p.Seek(currentTime, r.clock.Now())
	})
}

func (r *Registry) mutatePlayback(code string, fn func(*Playback)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	fn(&room.Playback)
	return nil
}

// AppendMessage assigns the next message id and timestamp, appends the
// message to the room history, and returns it for broadcasting.
func (r *Registry) AppendMessage(code, connID, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return ChatMessage{}, ErrRoomNotFound
	}
	room.nextMessageID++
	msg := ChatMessage{
		ID:        room.nextMessageID,
		Text:      text,
		UserID:    connID,
		Timestamp: r.clock.Now(),
	}
	room.History = append(room.History, msg)
	return msg, nil
}

// snapshot copies the caller-visible room state. Callers hold r.mu.
func snapshot(room *Room) Snapshot {
	history := make([]ChatMessage, len(room.History))
	copy(history, room.History)
	return Snapshot{
		Code:     room.Code,
		HostID:   room.HostID,
		Playback: room.Playback,
		History:  history,
	}
}
