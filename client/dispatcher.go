package client

import (
	"encoding/json"
	"fmt"

	"watchparty/internal/protocol"
)

// Dispatcher decodes server envelopes and routes them to registered
// callbacks. Each event type has a single slot; setting a callback twice
// replaces the earlier one. Callbacks run on the client's read loop, so
// they must not block.
type Dispatcher struct {
	onRoomCreated func(RoomCreated)
	onJoinResult  func(JoinResult)
	onVideoChange func(VideoChange)
	onPlay        func(PlaybackEvent)
	onPause       func(PlaybackEvent)
	onSeek        func(PlaybackEvent)
	onChatMessage func(ChatMessage)
	onUserJoined  func(UserEvent)
	onUserLeft    func(UserEvent)
	onError       func(error)
}

func (d *Dispatcher) OnRoomCreated(fn func(RoomCreated)) { d.onRoomCreated = fn }
func (d *Dispatcher) OnJoinResult(fn func(JoinResult))   { d.onJoinResult = fn }
func (d *Dispatcher) OnVideoChange(fn func(VideoChange)) { d.onVideoChange = fn }
func (d *Dispatcher) OnPlay(fn func(PlaybackEvent))      { d.onPlay = fn }
func (d *Dispatcher) OnPause(fn func(PlaybackEvent))     { d.onPause = fn }
func (d *Dispatcher) OnSeek(fn func(PlaybackEvent))      { d.onSeek = fn }
func (d *Dispatcher) OnChatMessage(fn func(ChatMessage)) { d.onChatMessage = fn }
func (d *Dispatcher) OnUserJoined(fn func(UserEvent))    { d.onUserJoined = fn }
func (d *Dispatcher) OnUserLeft(fn func(UserEvent))      { d.onUserLeft = fn }
func (d *Dispatcher) OnError(fn func(error))             { d.onError = fn }

// Dispatch routes one server envelope. Unknown event types are ignored so
// old clients keep working against newer servers.
func (d *Dispatcher) Dispatch(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeRoomCreated:
		var p protocol.RoomCreatedPayload
		if !d.decode(env, &p) {
			return
		}
		if d.onRoomCreated != nil {
			d.onRoomCreated(RoomCreated{RoomID: p.RoomID, IsHost: p.IsHost})
		}

	case protocol.TypeJoinResult:
		var p protocol.JoinResultPayload
		if !d.decode(env, &p) {
			return
		}
		res := JoinResult{
			Success: p.Success,
			IsHost:  p.IsHost,
			Error:   p.Error,
			VideoID: p.VideoID,
		}
		if p.VideoState != nil {
			res.Playing = p.VideoState.Playing
			res.CurrentTime = p.VideoState.CurrentTime
		}
		for _, m := range p.Messages {
			res.Messages = append(res.Messages, ChatMessage(m))
		}
		if d.onJoinResult != nil {
			d.onJoinResult(res)
		}

	case protocol.TypeVideoChange:
		var p protocol.VideoChangePayload
		if !d.decode(env, &p) {
			return
		}
		if d.onVideoChange != nil {
			d.onVideoChange(VideoChange{VideoID: p.VideoID})
		}

	case protocol.TypePlay, protocol.TypePause, protocol.TypeSeek:
		var p protocol.PlaybackPayload
		if !d.decode(env, &p) {
			return
		}
		ev := PlaybackEvent{CurrentTime: p.CurrentTime}
		switch env.Type {
		case protocol.TypePlay:
			if d.onPlay != nil {
				d.onPlay(ev)
			}
		case protocol.TypePause:
			if d.onPause != nil {
				d.onPause(ev)
			}
		case protocol.TypeSeek:
			if d.onSeek != nil {
				d.onSeek(ev)
			}
		}

	case protocol.TypeChatMessage:
		var p protocol.ChatMessage
		if !d.decode(env, &p) {
			return
		}
		if d.onChatMessage != nil {
			d.onChatMessage(ChatMessage(p))
		}

	case protocol.TypeUserJoined:
		var p protocol.UserPayload
		if !d.decode(env, &p) {
			return
		}
		if d.onUserJoined != nil {
			d.onUserJoined(UserEvent{UserID: p.UserID})
		}

	case protocol.TypeUserLeft:
		var p protocol.UserPayload
		if !d.decode(env, &p) {
			return
		}
		if d.onUserLeft != nil {
			d.onUserLeft(UserEvent{UserID: p.UserID})
		}
	}
}

func (d *Dispatcher) decode(env protocol.Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		d.fireError(fmt.Errorf("decode %s: %w", env.Type, err))
		return false
	}
	return true
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}
