package client

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// emitter is the slice of Client the agent uses to talk to the server.
type emitter interface {
	CreateRoom(ctx context.Context) error
	JoinRoom(ctx context.Context, roomID string) error
	SetVideo(ctx context.Context, videoID string) error
	Play(ctx context.Context, currentTime float64) error
	Pause(ctx context.Context, currentTime float64) error
	Seek(ctx context.Context, currentTime float64) error
}

// SyncAgent keeps a local Player in step with the room. It applies remote
// play, pause, seek and video-change events to the player, forwards local
// user actions to the server, and runs a drift poll that turns large
// jumps of the player clock into seek events.
//
// The agent claims the playback callbacks on the client's Dispatcher
// (room-created, join-result, video-change, play, pause, seek); the
// application keeps chat and presence. Feed the widget's own play and
// pause notifications to HandleStateChange.
type SyncAgent struct {
	emit   emitter
	player Player
	cfg    Config
	clock  clockwork.Clock

	mu          sync.Mutex
	roomID      string
	pendingRoom string

	// lastReported is the player position the room last heard about, the
	// reference the drift poll measures against.
	lastReported float64

	// pendingPlaying, when set, is the state-change notification the
	// player is expected to fire because of a remote apply. Matching
	// notifications are consumed instead of echoed to the server.
	pendingPlaying *bool

	// suppressUntil holds the drift poll down while a programmatic apply
	// settles.
	suppressUntil time.Time

	// OnCreated, OnJoined, OnJoinFailed and OnError let the application
	// observe room lifecycle without re-registering dispatcher callbacks.
	OnCreated    func(RoomCreated)
	OnJoined     func(JoinResult)
	OnJoinFailed func(reason string)
	OnError      func(error)
}

// NewSyncAgent wires an agent to a client and its dispatcher. A nil clock
// means the real one.
func NewSyncAgent(c *Client, player Player, cfg Config, clock clockwork.Clock) *SyncAgent {
	a := newSyncAgent(c, player, cfg, clock)
	d := c.Dispatcher()
	d.OnRoomCreated(a.handleRoomCreated)
	d.OnJoinResult(a.handleJoinResult)
	d.OnVideoChange(a.applyVideoChange)
	d.OnPlay(a.applyPlay)
	d.OnPause(a.applyPause)
	d.OnSeek(a.applySeek)
	return a
}

func newSyncAgent(emit emitter, player Player, cfg Config, clock clockwork.Clock) *SyncAgent {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SyncAgent{emit: emit, player: player, cfg: cfg, clock: clock}
}

// Start runs the drift poll until ctx is cancelled.
func (a *SyncAgent) Start(ctx context.Context) {
	ticker := a.clock.NewTicker(a.cfg.DriftPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			a.pollDrift(ctx)
		}
	}
}

// RoomID returns the room the agent is bound to, or "".
func (a *SyncAgent) RoomID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roomID
}

// CreateRoom asks the server for a fresh room.
func (a *SyncAgent) CreateRoom(ctx context.Context) error {
	return a.emit.CreateRoom(ctx)
}

// JoinRoom asks to join an existing room. The binding takes effect when
// the server confirms through the join result.
func (a *SyncAgent) JoinRoom(ctx context.Context, roomID string) error {
	a.mu.Lock()
	a.pendingRoom = roomID
	a.mu.Unlock()
	return a.emit.JoinRoom(ctx, roomID)
}

// LoadVideo loads a video locally and shares it with the room. Accepts a
// watch URL or a bare video id.
func (a *SyncAgent) LoadVideo(ctx context.Context, rawURL string) error {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return err
	}
	a.beginApply(expectState(false), 0)
	a.player.LoadVideo(videoID, 0)
	return a.emit.SetVideo(ctx, videoID)
}

// HandleStateChange takes the widget's play/pause notification. If the
// agent just applied a matching remote event the notification is an echo
// and gets consumed; otherwise it is a user action and goes to the
// server.
func (a *SyncAgent) HandleStateChange(ctx context.Context, playing bool) {
	a.mu.Lock()
	if a.pendingPlaying != nil && *a.pendingPlaying == playing {
		a.pendingPlaying = nil
		a.mu.Unlock()
		return
	}
	bound := a.roomID != ""
	a.mu.Unlock()
	if !bound {
		return
	}

	cur := a.player.CurrentTime()
	a.mu.Lock()
	a.lastReported = cur
	a.mu.Unlock()

	var err error
	if playing {
		err = a.emit.Play(ctx, cur)
	} else {
		err = a.emit.Pause(ctx, cur)
	}
	if err != nil {
		a.fireError(err)
	}
}

// pollDrift compares the player clock against the last reported position.
// Normal playback advances by about one poll interval; anything past the
// threshold means the user scrubbed and the room needs a seek.
func (a *SyncAgent) pollDrift(ctx context.Context) {
	a.mu.Lock()
	if a.roomID == "" || a.clock.Now().Before(a.suppressUntil) {
		a.mu.Unlock()
		return
	}
	last := a.lastReported
	a.mu.Unlock()

	cur := a.player.CurrentTime()
	a.mu.Lock()
	a.lastReported = cur
	a.mu.Unlock()

	if math.Abs(cur-last) > a.cfg.DriftThreshold {
		if err := a.emit.Seek(ctx, cur); err != nil {
			a.fireError(err)
		}
	}
}

func (a *SyncAgent) handleRoomCreated(ev RoomCreated) {
	a.mu.Lock()
	a.roomID = ev.RoomID
	a.mu.Unlock()
	if a.OnCreated != nil {
		a.OnCreated(ev)
	}
}

func (a *SyncAgent) handleJoinResult(res JoinResult) {
	a.mu.Lock()
	if !res.Success {
		a.pendingRoom = ""
		a.mu.Unlock()
		if a.OnJoinFailed != nil {
			a.OnJoinFailed(res.Error)
		}
		return
	}
	a.roomID = a.pendingRoom
	a.pendingRoom = ""
	a.mu.Unlock()

	if res.VideoID != "" {
		a.beginApply(expectState(res.Playing), res.CurrentTime)
		a.player.LoadVideo(res.VideoID, res.CurrentTime)
		if res.Playing {
			a.player.Play()
		}
	}
	if a.OnJoined != nil {
		a.OnJoined(res)
	}
}

func (a *SyncAgent) applyVideoChange(ev VideoChange) {
	a.beginApply(expectState(false), 0)
	a.player.LoadVideo(ev.VideoID, 0)
}

func (a *SyncAgent) applyPlay(ev PlaybackEvent) {
	a.beginApply(expectState(true), ev.CurrentTime)
	a.player.SeekTo(ev.CurrentTime)
	a.player.Play()
}

func (a *SyncAgent) applyPause(ev PlaybackEvent) {
	a.beginApply(expectState(false), ev.CurrentTime)
	a.player.SeekTo(ev.CurrentTime)
	a.player.Pause()
}

func (a *SyncAgent) applySeek(ev PlaybackEvent) {
	a.beginApply(nil, ev.CurrentTime)
	a.player.SeekTo(ev.CurrentTime)
}

// beginApply marks the start of a programmatic change: record which
// state-change echo to expect, move the drift reference, and hold the
// poll down for the grace window.
func (a *SyncAgent) beginApply(expectPlaying *bool, refTime float64) {
	a.mu.Lock()
	a.pendingPlaying = expectPlaying
	a.suppressUntil = a.clock.Now().Add(a.cfg.SuppressWindow)
	a.lastReported = refTime
	a.mu.Unlock()
}

func (a *SyncAgent) fireError(err error) {
	if a.OnError != nil {
		a.OnError(err)
	}
}

func expectState(playing bool) *bool { return &playing }
