package client

// Player is the capability surface of the embedded video widget the sync
// agent drives. Implementations wrap a real player; the widget's own
// play/pause notifications must be fed to SyncAgent.HandleStateChange.
type Player interface {
	// LoadVideo loads a video and cues it, paused, at startTime seconds.
	LoadVideo(videoID string, startTime float64)
	Play()
	Pause()
	SeekTo(seconds float64)
	CurrentTime() float64
}
