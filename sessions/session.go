package sessions

import (
	"log/slog"
	"strings"
	"time"

	"github.com/echocat/ha-companion-media-player/shared"
)

type PlaybackState string

const (
	StateIdle      PlaybackState = "idle"
	StatePlaying   PlaybackState = "playing"
	StatePaused    PlaybackState = "paused"
	StateBuffering PlaybackState = "buffering"
	StateStopped   PlaybackState = "stopped"
	StateError     PlaybackState = "error"
)

// ParsePlaybackState normalises a raw state string from the companion app.
// Unrecognised values are coerced to idle rather than rejected.
func ParsePlaybackState(raw string) PlaybackState {
	switch PlaybackState(strings.ToLower(raw)) {
	case StatePlaying:
		return StatePlaying
	case StatePaused:
		return StatePaused
	case StateBuffering:
		return StateBuffering
	case StateStopped:
		return StateStopped
	case StateError:
		return StateError
	case StateIdle:
		return StateIdle
	default:
		slog.Debug("Coercing unrecognised playback state to idle",
			slog.String("state", raw))
		return StateIdle
	}
}

// Session is the tracked playback state of a single application on a device.
type Session struct {
	PackageName string        `json:"package_name"`
	MediaID     string        `json:"media_id,omitempty"`
	State       PlaybackState `json:"state"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist,omitempty"`
	Album       string        `json:"album,omitempty"`

	// Duration and Position are in milliseconds. A nil pointer means the
	// companion app did not report a usable value.
	Duration *int `json:"duration_ms,omitempty"`
	Position *int `json:"position_ms,omitempty"`

	// ArtworkURL is populated asynchronously, independently of snapshots.
	ArtworkURL string `json:"artwork_url,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}

func (s *Session) DisplayName() string {
	return shared.DisplayName(s.PackageName)
}

// clone returns a detached copy, safe to read after the registry lock has
// been released. Duration and Position stay shared: reconciliation swaps
// those pointers wholesale, never the pointed-to values.
func (s *Session) clone() *Session {
	c := *s
	return &c
}

// Stale reports whether the session has gone untouched for longer than the
// session timeout.
func (s *Session) Stale(timeout time.Duration, now time.Time) bool {
	return s.LastUpdated.Before(now.Add(-timeout))
}

// EffectiveState is the session's playback state after applying the
// staleness rule: anything untouched past the timeout counts as idle.
func (s *Session) EffectiveState(timeout time.Duration, now time.Time) PlaybackState {
	if s.Stale(timeout, now) {
		return StateIdle
	}
	return s.State
}

// meaningful reports whether a state justifies keeping a selected session
// selected, i.e. it is somehow still in use rather than abandoned.
func meaningful(state PlaybackState) bool {
	return state == StatePlaying || state == StatePaused || state == StateBuffering
}

// active reports whether a state should win the priority scan.
func active(state PlaybackState) bool {
	return state == StatePlaying || state == StateBuffering
}
