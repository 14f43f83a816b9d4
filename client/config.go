package client

import "time"

// Config controls how the client connects and how the sync agent
// reconciles.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// DriftPollInterval is how often the agent compares the player clock
	// against the last reported position.
	DriftPollInterval time.Duration

	// DriftThreshold is the divergence, in seconds, beyond which a poll
	// counts as a user scrub and emits a seek.
	DriftThreshold float64

	// SuppressWindow is the grace period after a programmatic apply during
	// which the drift poll stands down.
	SuppressWindow time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		DriftPollInterval: time.Second,
		DriftThreshold:    2.0,
		SuppressWindow:    time.Second,
	}
}
