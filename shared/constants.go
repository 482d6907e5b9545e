package shared

// Attribute prefixes used by the companion app's media session sensor. Each
// session is flattened into the sensor attributes as <prefix><package_name>.
const (
	AttrPrefixAlbum            = "album_"
	AttrPrefixArtist           = "artist_"
	AttrPrefixDuration         = "duration_"
	AttrPrefixMediaID          = "media_id_"
	AttrPrefixPlaybackPosition = "playback_position_"
	AttrPrefixPlaybackState    = "playback_state_"
	AttrPrefixTitle            = "title_"
)

// Top-level attribute carrying the music stream volume, if the device
// reports one.
const AttrVolumeLevelMusic = "volume_level_music"

// Sensor states that carry no usable data. Snapshots in these states are
// ignored rather than clearing existing sessions.
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// Messages understood by the companion app's notify service.
const (
	NotifyCommandMedia         = "command_media"
	NotifyCommandVolume        = "command_volume_level"
	NotifyCommandUpdateSensors = "command_update_sensors"
)

// Media commands relayed to the device.
const (
	MediaCommandPlay     = "play"
	MediaCommandPause    = "pause"
	MediaCommandStop     = "stop"
	MediaCommandNext     = "next"
	MediaCommandPrevious = "previous"
)

const VolumeStreamMusic = "music_stream"

const (
	DefaultSessionTimeoutMinutes = 30
	MinSessionTimeoutMinutes     = 1
	MaxSessionTimeoutMinutes     = 1440
	DefaultVolumeMax             = 15 // typical Android max volume level
)

const UserAgent = "ha-companion-media-player/1.0 <github.com/echocat/ha-companion-media-player>"

// KnownApps maps well-known Android package names to friendly display names.
var KnownApps = map[string]string{
	"com.spotify.music":                       "Spotify",
	"com.spotify.kids":                        "Spotify Kids",
	"com.google.android.apps.youtube.music":   "YouTube Music",
	"com.google.android.youtube":              "YouTube",
	"com.google.android.apps.podcasts":        "Google Podcasts",
	"org.videolan.vlc":                        "VLC",
	"com.plexapp.android":                     "Plex",
	"com.aspiro.tidal":                        "Tidal",
	"com.amazon.mp3":                          "Amazon Music",
	"com.apple.android.music":                 "Apple Music",
	"com.pandora.android":                     "Pandora",
	"com.soundcloud.android":                  "SoundCloud",
	"fm.castbox.audiobook.radio.podcast":      "Castbox",
	"com.google.android.apps.youtube.creator": "YouTube Studio",
	"com.netflix.mediaclient":                 "Netflix",
	"com.disney.disneyplus":                   "Disney+",
	"tv.twitch.android.app":                   "Twitch",
	"tunein.player":                           "TuneIn",
}

// DisplayName returns the friendly name for a package, falling back to the
// package name itself.
func DisplayName(packageName string) string {
	if name, ok := KnownApps[packageName]; ok {
		return name
	}
	return packageName
}
