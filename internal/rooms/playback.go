package rooms

import "time"

// State of the playback machine.
type State int

const (
	NoVideo State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case NoVideo:
		return "no_video"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Playback is the authoritative snapshot all clients reconcile toward.
// CurrentTime is the position reported by whichever client last acted;
// the server never advances it between reports. Updates are applied in
// arrival order with no sequencing metadata — last writer wins.
type Playback struct {
	VideoID     string    `json:"videoId"`
	Playing     bool      `json:"playing"`
	CurrentTime float64   `json:"currentTime"`
	UpdatedAt   time.Time `json:"-"`
}

func (p *Playback) State() State {
	if p.VideoID == "" {
		return NoVideo
	}
	if p.Playing {
		return Playing
	}
	return Paused
}

// Load switches to a new video, paused at the start. Resetting the
// position keeps late joiners from seeking to a time that belonged to
// the previous video.
func (p *Playback) Load(videoID string, at time.Time) {
	p.VideoID = videoID
	p.Playing = false
	p.CurrentTime = 0
	p.UpdatedAt = at
}

func (p *Playback) Play(currentTime float64, at time.Time) {
	p.Playing = true
	p.CurrentTime = currentTime
	p.UpdatedAt = at
}

func (p *Playback) Pause(currentTime float64, at time.Time) {
	p.Playing = false
	p.CurrentTime = currentTime
	p.UpdatedAt = at
}

// Seek updates the position without changing the play state.
func (p *Playback) Seek(currentTime float64, at time.Time) {
	p.CurrentTime = currentTime
	p.UpdatedAt = at
}
