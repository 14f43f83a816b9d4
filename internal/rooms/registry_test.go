package rooms

import (
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
)

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClock())
}

func TestRegistry_Create(t *testing.T) {
	r := newTestRegistry()

	snap, err := r.Create("host-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Code) != 6 {
		t.Errorf("code length = %d, want 6", len(snap.Code))
	}
	if snap.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", snap.HostID, "host-1")
	}
	if snap.Playback.State() != NoVideo {
		t.Errorf("new room playback state = %v, want %v", snap.Playback.State(), NoVideo)
	}
	if len(snap.History) != 0 {
		t.Error("new room should have empty history")
	}
	if got := r.MemberCount(snap.Code); got != 1 {
		t.Errorf("MemberCount = %d, want 1 (creator is sole member)", got)
	}
}

func TestRegistry_CreateDistinctCodes(t *testing.T) {
	r := newTestRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		snap, err := r.Create("host")
		if err != nil {
			t.Fatal(err)
		}
		if seen[snap.Code] {
			t.Fatalf("duplicate room code %q", snap.Code)
		}
		seen[snap.Code] = true
	}
}

func TestRegistry_JoinUnknownRoom(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Join("ffffff", "conn-1")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Join unknown room error = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_MembershipNetCount(t *testing.T) {
	r := newTestRegistry()
	snap, _ := r.Create("a")
	code := snap.Code

	// Joins and leaves in an arbitrary order; member count must equal the
	// net joins minus leaves, and the room must exist iff it is positive.
	if _, err := r.Join(code, "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Join(code, "c"); err != nil {
		t.Fatal(err)
	}
	if got := r.MemberCount(code); got != 3 {
		t.Errorf("MemberCount = %d, want 3", got)
	}

	if !r.Leave(code, "a") {
		t.Error("room should survive a non-final leave")
	}
	if !r.Leave(code, "b") {
		t.Error("room should survive a non-final leave")
	}
	if got := r.MemberCount(code); got != 1 {
		t.Errorf("MemberCount = %d, want 1", got)
	}

	if r.Leave(code, "c") {
		t.Error("room should be destroyed with its last member")
	}
	if _, err := r.Get(code); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Get after destroy error = %v, want ErrRoomNotFound", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_LeaveUnknownRoom(t *testing.T) {
	r := newTestRegistry()
	// Should not panic, reports room gone.
	if r.Leave("ffffff", "conn-1") {
		t.Error("Leave on unknown room should report it does not exist")
	}
}

func TestRegistry_PlaybackMutations(t *testing.T) {
	r := newTestRegistry()
	snap, _ := r.Create("a")
	code := snap.Code

	if err := r.SetVideo(code, "xyz"); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get(code)
	if got.Playback.VideoID != "xyz" || got.Playback.Playing || got.Playback.CurrentTime != 0 {
		t.Errorf("after SetVideo: %+v, want paused xyz at 0", got.Playback)
	}

	if err := r.Play(code, 12.5); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Get(code)
	if !got.Playback.Playing || got.Playback.CurrentTime != 12.5 {
		t.Errorf("after Play: %+v, want playing at 12.5", got.Playback)
	}

	if err := r.Pause(code, 13.0); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Get(code)
	if got.Playback.Playing || got.Playback.CurrentTime != 13.0 {
		t.Errorf("after Pause: %+v, want paused at 13.0", got.Playback)
	}

	if err := r.Seek(code, 42.0); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Get(code)
	if got.Playback.Playing || got.Playback.CurrentTime != 42.0 {
		t.Errorf("after Seek: %+v, want paused at 42.0", got.Playback)
	}

	if err := r.Seek("ffffff", 1); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Seek on unknown room error = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_AppendMessage(t *testing.T) {
	r := newTestRegistry()
	snap, _ := r.Create("a")
	code := snap.Code

	m1, err := r.AppendMessage(code, "a", "hello")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := r.AppendMessage(code, "a", "world")
	if err != nil {
		t.Fatal(err)
	}
	if m2.ID <= m1.ID {
		t.Errorf("message ids not monotonic: %d then %d", m1.ID, m2.ID)
	}
	if m1.UserID != "a" || m1.Text != "hello" {
		t.Errorf("unexpected message: %+v", m1)
	}

	got, _ := r.Get(code)
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
	if got.History[0].ID != m1.ID || got.History[1].ID != m2.ID {
		t.Error("history should be ordered oldest first")
	}
}

func TestRegistry_AppendMessage_Invalid(t *testing.T) {
	r := newTestRegistry()
	snap, _ := r.Create("a")

	if _, err := r.AppendMessage(snap.Code, "a", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("whitespace message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := r.AppendMessage("ffffff", "a", "hi"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown room error = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := newTestRegistry()
	snap, _ := r.Create("a")
	code := snap.Code

	r.AppendMessage(code, "a", "one")
	got, _ := r.Get(code)
	got.History[0].Text = "mutated"

	fresh, _ := r.Get(code)
	if fresh.History[0].Text != "one" {
		t.Error("snapshot mutation leaked into registry state")
	}
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Create("host")
		}()
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("concurrent creates: got %d rooms, want 50", r.Len())
	}
}

func TestRegistry_RoomIsolation(t *testing.T) {
	r := newTestRegistry()
	r1, _ := r.Create("host-1")
	r2, _ := r.Create("host-2")

	r.SetVideo(r1.Code, "alpha")
	r.AppendMessage(r2.Code, "host-2", "only here")

	got1, _ := r.Get(r1.Code)
	got2, _ := r.Get(r2.Code)

	if got1.Playback.VideoID != "alpha" || got2.Playback.VideoID != "" {
		t.Error("video change leaked across rooms")
	}
	if len(got1.History) != 0 || len(got2.History) != 1 {
		t.Error("chat history leaked across rooms")
	}
}
