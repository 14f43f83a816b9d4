package client

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidVideoURL = errors.New("client: unrecognized video URL")

var (
	watchURLPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`)
	bareVideoID     = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
)

// ExtractVideoID pulls the video id out of a watch URL. Bare ids pass
// through unchanged so users can paste either form.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := watchURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if bareVideoID.MatchString(raw) {
		return raw, nil
	}
	return "", ErrInvalidVideoURL
}
