package models

// SnapshotPayload is the body of an inbound media session webhook, as
// forwarded by a Home Assistant automation: the sensor's top-level state
// plus its flattened attribute bag.
type SnapshotPayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// NowPlaying is the coherent "currently active" view for one device.
type NowPlaying struct {
	Device          string   `json:"device"`
	PackageName     string   `json:"package_name"`
	AppName         string   `json:"app_name"`
	State           string   `json:"state"`
	Title           string   `json:"title"`
	Artist          string   `json:"artist,omitempty"`
	Album           string   `json:"album,omitempty"`
	Duration        *int     `json:"duration_ms,omitempty"`
	Position        *int     `json:"position_ms,omitempty"`
	MediaID         string   `json:"media_id,omitempty"`
	Image           string   `json:"image,omitempty"`
	DominantColours []string `json:"dominant_colours,omitempty"`
	VolumeLevel     *float64 `json:"volume_level,omitempty"`
}

// SessionsResponse lists every tracked session for a device together with
// the selectable source names.
type SessionsResponse struct {
	Device     string        `json:"device"`
	Sessions   []SessionInfo `json:"sessions"`
	SourceList []string      `json:"source_list"`
}

type SessionInfo struct {
	PackageName string `json:"package_name"`
	AppName     string `json:"app_name"`
	State       string `json:"state"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	MediaID     string `json:"media_id,omitempty"`
	Image       string `json:"image,omitempty"`
	Selected    bool   `json:"selected"`
	Fresh       bool   `json:"fresh"`
}

type SourceRequest struct {
	Source string `json:"source"`
}

type CommandRequest struct {
	Command string `json:"command"`
}

type VolumeRequest struct {
	Level float64 `json:"level"`
}

// ArtworkEntry is a persisted positive artwork resolution, reloaded into
// the in-memory cache at boot.
type ArtworkEntry struct {
	MediaID         string            `db:"media_id"`
	ImageURL        string            `db:"image_url"`
	DominantColours SerializableArray `db:"dominant_colours"`
	ResolvedAt      int64             `db:"resolved_at"`
}
