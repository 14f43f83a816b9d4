package wshub

import (
	"encoding/json"
	"testing"
	"time"

	"watchparty/internal/protocol"
)

func testClient(connID string) *Client {
	return &Client{ConnID: connID, Send: make(chan []byte, 16)}
}

func mustEnvelope(t *testing.T, eventType string, payload any) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func recv(t *testing.T, c *Client) protocol.Envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return env
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s did not receive a frame", c.ConnID)
		return protocol.Envelope{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("%s should not have received a frame: %s", c.ConnID, data)
	default:
	}
}

func TestBroadcastExcept_SkipsSender(t *testing.T) {
	h := NewHub()

	a := testClient("a")
	b := testClient("b")
	c := testClient("c")
	h.Register("room1", a)
	h.Register("room1", b)
	h.Register("room1", c)

	env := mustEnvelope(t, protocol.TypeSeek, protocol.PlaybackPayload{CurrentTime: 17.5})
	h.BroadcastExcept("room1", "a", env)

	for _, peer := range []*Client{b, c} {
		got := recv(t, peer)
		if got.Type != protocol.TypeSeek {
			t.Errorf("type = %q, want %q", got.Type, protocol.TypeSeek)
		}
		var p protocol.PlaybackPayload
		if err := json.Unmarshal(got.Data, &p); err != nil {
			t.Fatal(err)
		}
		if p.CurrentTime != 17.5 {
			t.Errorf("currentTime = %v, want 17.5", p.CurrentTime)
		}
	}
	assertEmpty(t, a)
}

func TestBroadcast_IncludesSender(t *testing.T) {
	h := NewHub()

	a := testClient("a")
	b := testClient("b")
	c := testClient("c")
	h.Register("room1", a)
	h.Register("room1", b)
	h.Register("room1", c)

	env := mustEnvelope(t, protocol.TypeChatMessage, protocol.ChatMessage{ID: 1, Text: "hi", UserID: "a"})
	h.Broadcast("room1", env)

	// Every member, the sender included, gets exactly one copy.
	for _, m := range []*Client{a, b, c} {
		got := recv(t, m)
		if got.Type != protocol.TypeChatMessage {
			t.Errorf("type = %q, want %q", got.Type, protocol.TypeChatMessage)
		}
		assertEmpty(t, m)
	}
}

func TestBroadcast_RoomScoped(t *testing.T) {
	h := NewHub()

	a := testClient("a")
	b := testClient("b")
	h.Register("room1", a)
	h.Register("room2", b)

	h.Broadcast("room1", mustEnvelope(t, protocol.TypePlay, protocol.PlaybackPayload{CurrentTime: 1}))

	recv(t, a)
	assertEmpty(t, b)
}

func TestUnregister(t *testing.T) {
	h := NewHub()

	a := testClient("a")
	b := testClient("b")
	h.Register("room1", a)
	h.Register("room1", b)

	h.Unregister("room1", "a")
	h.Broadcast("room1", mustEnvelope(t, protocol.TypeUserLeft, protocol.UserPayload{UserID: "a"}))

	recv(t, b)
	assertEmpty(t, a)

	// Unregistering an unknown member or room should not panic.
	h.Unregister("room1", "nonexistent")
	h.Unregister("ghost", "a")
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()

	c := &Client{ConnID: "a", Send: make(chan []byte, 1)}
	h.Register("room1", c)

	c.Send <- []byte("filler")

	// Must not block; the frame is dropped.
	h.Broadcast("room1", mustEnvelope(t, protocol.TypePause, protocol.PlaybackPayload{CurrentTime: 3}))

	if got := string(<-c.Send); got != "filler" {
		t.Fatalf("expected filler, got: %s", got)
	}
	assertEmpty(t, c)
}
