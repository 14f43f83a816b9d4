package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"watchparty/internal/protocol"
)

var (
	ErrNotConnected = errors.New("client: not connected")
	ErrEmptyRoomID  = errors.New("client: empty room id")
	ErrEmptyText    = errors.New("client: empty message text")
)

// Client is a websocket connection to a watch party server. Incoming
// events are routed through the Dispatcher; outgoing events go through a
// single write loop so concurrent callers never interleave frames.
type Client struct {
	cfg        Config
	dispatcher Dispatcher

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	writeCh chan protocol.Envelope
	done    chan struct{}
}

// New creates a client for the given config. Register callbacks before
// calling Connect.
func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		writeCh: make(chan protocol.Envelope, 16),
		done:    make(chan struct{}),
	}
}

// Dispatcher exposes the callback registry.
func (c *Client) Dispatcher() *Dispatcher { return &c.dispatcher }

// Connect dials the server and starts the read and write loops. It
// returns once the websocket handshake completes.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return errors.New("client: already connected")
	}
	if c.cfg.URL == "" {
		return errors.New("client: no server URL configured")
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", c.cfg.URL, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connected = true
	c.cancel = cancel

	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	return nil
}

// Close tears down the connection and stops both loops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "client closing")
}

// Done is closed when the read loop exits, whether by Close or by the
// server going away.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if !c.isExpectedClose(err) {
				c.dispatcher.fireError(fmt.Errorf("client: read: %w", err))
			}
			return
		}
		c.dispatcher.Dispatch(env)
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.writeCh:
			if err := c.write(ctx, env); err != nil {
				if !c.isExpectedClose(err) {
					c.dispatcher.fireError(fmt.Errorf("client: write %s: %w", env.Type, err))
				}
				return
			}
		}
	}
}

func (c *Client) write(ctx context.Context, env protocol.Envelope) error {
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.conn, env)
}

// isExpectedClose reports whether err is the ordinary end of a
// connection rather than something worth surfacing.
func (c *Client) isExpectedClose(err error) bool {
	c.mu.Lock()
	closed := !c.connected
	c.mu.Unlock()
	if closed || errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func (c *Client) send(ctx context.Context, eventType string, payload any) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return fmt.Errorf("client: encode %s: %w", eventType, err)
	}
	select {
	case c.writeCh <- env:
		return nil
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateRoom asks the server for a fresh room. The answer arrives through
// the OnRoomCreated callback.
func (c *Client) CreateRoom(ctx context.Context) error {
	return c.send(ctx, protocol.TypeCreateRoom, nil)
}

// JoinRoom asks to join an existing room. The answer arrives through the
// OnJoinResult callback.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoomID
	}
	return c.send(ctx, protocol.TypeJoinRoom, protocol.JoinRoomPayload{RoomID: roomID})
}

// SetVideo announces a new video for the current room.
func (c *Client) SetVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return ErrInvalidVideoURL
	}
	return c.send(ctx, protocol.TypeVideoChange, protocol.VideoChangePayload{VideoID: videoID})
}

// Play reports that playback started at currentTime seconds.
func (c *Client) Play(ctx context.Context, currentTime float64) error {
	return c.send(ctx, protocol.TypePlay, protocol.PlaybackPayload{CurrentTime: currentTime})
}

// Pause reports that playback paused at currentTime seconds.
func (c *Client) Pause(ctx context.Context, currentTime float64) error {
	return c.send(ctx, protocol.TypePause, protocol.PlaybackPayload{CurrentTime: currentTime})
}

// Seek reports a scrub to currentTime seconds.
func (c *Client) Seek(ctx context.Context, currentTime float64) error {
	return c.send(ctx, protocol.TypeSeek, protocol.PlaybackPayload{CurrentTime: currentTime})
}

// SendChat sends a chat message to the room. The server echoes it back
// with its assigned id through the OnChatMessage callback.
func (c *Client) SendChat(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return c.send(ctx, protocol.TypeChatMessage, protocol.ChatSendPayload{Text: text})
}
