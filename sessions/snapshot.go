package sessions

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/echocat/ha-companion-media-player/shared"
)

// Candidate is one application's worth of fields decoded out of a flat
// snapshot, validated but not yet applied to a registry.
type Candidate struct {
	PackageName string
	MediaID     string
	State       PlaybackState
	Title       string
	Artist      string
	Album       string
	Duration    *int
	Position    *int
}

// ParseSnapshot decodes a flat attribute bag into per-package candidates.
// The companion app flattens every session into <prefix><package_name>
// keys, so each media_id_* key anchors one candidate and the sibling
// attributes are looked up under the same suffix.
//
// Candidates missing a playback state or title are dropped with a warning;
// they never abort processing of the remaining candidates. The parser is a
// pure function and carries no state between snapshots.
func ParseSnapshot(device string, attrs map[string]any) map[string]Candidate {
	candidates := make(map[string]Candidate)

	for key, value := range attrs {
		if !strings.HasPrefix(key, shared.AttrPrefixMediaID) {
			continue
		}
		packageName := strings.TrimPrefix(key, shared.AttrPrefixMediaID)

		rawState, ok := attrString(attrs, shared.AttrPrefixPlaybackState+packageName)
		if !ok {
			slog.Warn("Media session is lacking a required attribute; ignoring session",
				slog.String("device", device),
				slog.String("attribute", shared.AttrPrefixPlaybackState+packageName))
			continue
		}
		title, ok := attrString(attrs, shared.AttrPrefixTitle+packageName)
		if !ok {
			slog.Warn("Media session is lacking a required attribute; ignoring session",
				slog.String("device", device),
				slog.String("attribute", shared.AttrPrefixTitle+packageName))
			continue
		}

		artist, _ := attrString(attrs, shared.AttrPrefixArtist+packageName)
		album, _ := attrString(attrs, shared.AttrPrefixAlbum+packageName)
		mediaID, _ := asString(value)

		candidates[packageName] = Candidate{
			PackageName: packageName,
			MediaID:     mediaID,
			State:       ParsePlaybackState(rawState),
			Title:       title,
			Artist:      artist,
			Album:       album,
			Duration:    attrInt(attrs, shared.AttrPrefixDuration+packageName),
			Position:    attrInt(attrs, shared.AttrPrefixPlaybackPosition+packageName),
		}
	}

	return candidates
}

func attrString(attrs map[string]any, key string) (string, bool) {
	value, ok := attrs[key]
	if !ok || value == nil {
		return "", false
	}
	return asString(value)
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// attrInt coerces an attribute to an integer on a best-effort basis.
// Anything unparsable just yields nil, never an error.
func attrInt(attrs map[string]any, key string) *int {
	value, ok := attrs[key]
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case int:
		return &v
	case int64:
		i := int(v)
		return &i
	case float64:
		// encoding/json decodes all numbers as float64
		i := int(v)
		return &i
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}
