package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"watchparty/internal/metrics"
	"watchparty/internal/protocol"
	"watchparty/internal/rooms"
	"watchparty/internal/wshub"
)

// session binds one live connection to at most one room. roomID is the
// only per-connection state: empty until a create or join succeeds, reset
// on leave.
type session struct {
	srv    *Server
	connID string
	roomID string
	client *wshub.Client
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if s.allowAllOrigins() {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = s.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	connID := uuid.New().String()
	sess := &session{
		srv:    s,
		connID: connID,
		client: &wshub.Client{ConnID: connID, Conn: conn, Send: make(chan []byte, 64)},
	}

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go sess.client.WritePump(ctx)

	log.Info().Str("conn_id", connID).Msg("session connected")
	sess.readLoop(ctx)

	// Transport loss or normal close: membership cleanup, then notify
	// whoever is left.
	sess.leaveRoom()
	log.Info().Str("conn_id", connID).Msg("session disconnected")
}

func (sess *session) readLoop(ctx context.Context) {
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, sess.client.Conn, &env); err != nil {
			log.Debug().Err(err).Str("conn_id", sess.connID).Msg("session read ended")
			return
		}
		sess.dispatch(env)
	}
}

func (sess *session) dispatch(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeCreateRoom:
		sess.handleCreateRoom()

	case protocol.TypeJoinRoom:
		var p protocol.JoinRoomPayload
		if !sess.decode(env, &p) {
			return
		}
		sess.handleJoinRoom(p.RoomID)

	case protocol.TypeVideoChange:
		var p protocol.VideoChangePayload
		if !sess.decode(env, &p) {
			return
		}
		sess.handleVideoChange(p.VideoID)

	case protocol.TypePlay, protocol.TypePause, protocol.TypeSeek:
		var p protocol.PlaybackPayload
		if !sess.decode(env, &p) {
			return
		}
		sess.handlePlayback(env.Type, p.CurrentTime)

	case protocol.TypeChatMessage:
		var p protocol.ChatSendPayload
		if !sess.decode(env, &p) {
			return
		}
		sess.handleChat(p.Text)

	default:
		log.Debug().Str("conn_id", sess.connID).Str("type", env.Type).Msg("unknown event type, dropped")
	}
}

func (sess *session) decode(env protocol.Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		log.Debug().Err(err).Str("conn_id", sess.connID).Str("type", env.Type).Msg("bad payload, dropped")
		return false
	}
	return true
}

func (sess *session) handleCreateRoom() {
	// A session holds at most one room binding; creating while joined
	// detaches from the old room first.
	sess.leaveRoom()

	snap, err := sess.srv.Rooms.Create(sess.connID)
	if err != nil {
		log.Error().Err(err).Str("conn_id", sess.connID).Msg("create room failed")
		return
	}
	sess.roomID = snap.Code
	sess.srv.Hub.Register(snap.Code, sess.client)
	metrics.ActiveRooms.Inc()

	sess.reply(protocol.TypeRoomCreated, protocol.RoomCreatedPayload{RoomID: snap.Code, IsHost: true})
}

func (sess *session) handleJoinRoom(roomID string) {
	sess.leaveRoom()

	snap, err := sess.srv.Rooms.Join(roomID, sess.connID)
	if err != nil {
		if !errors.Is(err, rooms.ErrRoomNotFound) {
			log.Error().Err(err).Str("room", roomID).Msg("join room failed")
		}
		sess.reply(protocol.TypeJoinResult, protocol.JoinResultPayload{Success: false, Error: "Room not found"})
		return
	}
	sess.roomID = roomID
	sess.srv.Hub.Register(roomID, sess.client)

	messages := make([]protocol.ChatMessage, 0, len(snap.History))
	for _, m := range snap.History {
		messages = append(messages, protocol.ChatMessage{
			ID:        m.ID,
			Text:      m.Text,
			UserID:    m.UserID,
			Timestamp: m.Timestamp,
		})
	}
	sess.reply(protocol.TypeJoinResult, protocol.JoinResultPayload{
		Success: true,
		IsHost:  snap.HostID == sess.connID,
		VideoID: snap.Playback.VideoID,
		VideoState: &protocol.VideoState{
			Playing:     snap.Playback.Playing,
			CurrentTime: snap.Playback.CurrentTime,
		},
		Messages: messages,
	})

	sess.broadcastExcept(protocol.TypeUserJoined, protocol.UserPayload{UserID: sess.connID})
}

func (sess *session) handleVideoChange(videoID string) {
	if sess.roomID == "" || videoID == "" {
		sess.drop(protocol.TypeVideoChange)
		return
	}
	if err := sess.srv.Rooms.SetVideo(sess.roomID, videoID); err != nil {
		sess.drop(protocol.TypeVideoChange)
		return
	}
	sess.broadcastExcept(protocol.TypeVideoChange, protocol.VideoChangePayload{VideoID: videoID})
}

func (sess *session) handlePlayback(eventType string, currentTime float64) {
	if sess.roomID == "" || currentTime < 0 {
		sess.drop(eventType)
		return
	}

	var err error
	switch eventType {
	case protocol.TypePlay:
		err = sess.srv.Rooms.Play(sess.roomID, currentTime)
	case protocol.TypePause:
		err = sess.srv.Rooms.Pause(sess.roomID, currentTime)
	case protocol.TypeSeek:
		err = sess.srv.Rooms.Seek(sess.roomID, currentTime)
	}
	if err != nil {
		sess.drop(eventType)
		return
	}
	// The originator already has this state locally; never echo it back.
	sess.broadcastExcept(eventType, protocol.PlaybackPayload{CurrentTime: currentTime})
}

func (sess *session) handleChat(text string) {
	if sess.roomID == "" {
		sess.drop(protocol.TypeChatMessage)
		return
	}
	msg, err := sess.srv.Rooms.AppendMessage(sess.roomID, sess.connID, text)
	if err != nil {
		sess.drop(protocol.TypeChatMessage)
		return
	}
	metrics.ChatMessages.Inc()

	// Everyone renders the server-assigned message, the sender included.
	sess.broadcast(protocol.TypeChatMessage, protocol.ChatMessage{
		ID:        msg.ID,
		Text:      msg.Text,
		UserID:    msg.UserID,
		Timestamp: msg.Timestamp,
	})
}

// leaveRoom detaches the session from its room, destroying the room if it
// was the last member and notifying the remaining members otherwise.
func (sess *session) leaveRoom() {
	if sess.roomID == "" {
		return
	}
	roomID := sess.roomID
	sess.roomID = ""

	sess.srv.Hub.Unregister(roomID, sess.connID)
	if sess.srv.Rooms.Leave(roomID, sess.connID) {
		env, err := protocol.NewEnvelope(protocol.TypeUserLeft, protocol.UserPayload{UserID: sess.connID})
		if err != nil {
			log.Error().Err(err).Msg("encode user-left")
			return
		}
		sess.srv.Hub.Broadcast(roomID, env)
	} else {
		metrics.ActiveRooms.Dec()
	}
}

// reply sends a targeted event back on the session's own connection.
func (sess *session) reply(eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode reply")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("marshal reply")
		return
	}
	select {
	case sess.client.Send <- data:
	default:
		log.Warn().Str("conn_id", sess.connID).Str("type", eventType).Msg("send buffer full, dropping reply")
	}
}

func (sess *session) broadcast(eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode broadcast")
		return
	}
	sess.srv.Hub.Broadcast(sess.roomID, env)
}

func (sess *session) broadcastExcept(eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode broadcast")
		return
	}
	sess.srv.Hub.BroadcastExcept(sess.roomID, sess.connID, env)
}

// drop logs an event from an unbound session or with unusable contents.
// Nothing is sent back to the sender.
func (sess *session) drop(eventType string) {
	log.Debug().Str("conn_id", sess.connID).Str("type", eventType).Msg("event dropped")
}
