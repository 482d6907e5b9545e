// Package tracker owns the per-device session registries and glues the
// snapshot pipeline together: reconcile, select, enrich with artwork and
// push changes out to clients.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/r3labs/sse/v2"

	"github.com/echocat/ha-companion-media-player/db"
	"github.com/echocat/ha-companion-media-player/events"
	"github.com/echocat/ha-companion-media-player/models"
	"github.com/echocat/ha-companion-media-player/notify"
	"github.com/echocat/ha-companion-media-player/sessions"
	"github.com/echocat/ha-companion-media-player/shared"
)

type Options struct {
	SessionTimeout time.Duration
	VolumeMax      int
	StorageDir     string
}

type System struct {
	mu         sync.RWMutex
	registries map[string]*sessions.Registry
	volumes    map[string]int    // raw android volume per device
	published  map[string]uint64 // last published now-playing hash per device

	resolver  Resolver
	commander notify.Commander
	alerter   *notify.Alerter
	store     db.Store
	client    *http.Client
	covers    *coverCache

	timeout    time.Duration
	volumeMax  int
	storageDir string
}

// Resolver is the artwork lookup surface the tracker depends on.
type Resolver interface {
	Resolve(ctx context.Context, mediaID, packageName string) (string, bool)
}

func NewSystem(opts Options, resolver Resolver, commander notify.Commander, alerter *notify.Alerter, store db.Store, client *http.Client) *System {
	volumeMax := opts.VolumeMax
	if volumeMax <= 0 {
		volumeMax = shared.DefaultVolumeMax
	}
	return &System{
		registries: make(map[string]*sessions.Registry),
		volumes:    make(map[string]int),
		published:  make(map[string]uint64),
		resolver:   resolver,
		commander:  commander,
		alerter:    alerter,
		store:      store,
		client:     client,
		covers:     newCoverCache(),
		timeout:    opts.SessionTimeout,
		volumeMax:  volumeMax,
		storageDir: opts.StorageDir,
	}
}

// Registry returns the registry for a device, creating it on first use.
// Devices announce themselves simply by delivering a snapshot.
func (s *System) Registry(device string) *sessions.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, ok := s.registries[device]
	if !ok {
		registry = sessions.NewRegistry(device)
		s.registries[device] = registry
		slog.Info("Tracking new device", slog.String("device", device))
	}
	return registry
}

// Devices returns the names of all tracked devices.
func (s *System) Devices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]string, 0, len(s.registries))
	for device := range s.registries {
		devices = append(devices, device)
	}
	return devices
}

// HandleSnapshot applies an inbound sensor snapshot for a device. Reports
// whether the snapshot was applied; snapshots in a sentinel state carry no
// data and are ignored rather than clearing existing sessions.
func (s *System) HandleSnapshot(device string, payload models.SnapshotPayload) bool {
	if payload.State == shared.StateUnavailable || payload.State == shared.StateUnknown {
		slog.Debug("Ignoring snapshot without usable data",
			slog.String("device", device),
			slog.String("state", payload.State))
		return false
	}

	registry := s.Registry(device)
	registry.Reconcile(sessions.ParseSnapshot(device, payload.Attributes))

	s.updateVolume(device, payload.Attributes)

	// Artwork arrives asynchronously and independently of the snapshot;
	// the publish below goes out with whatever artwork is already known.
	go s.enrichArtwork(device)

	s.publishIfChanged(device)
	return true
}

func (s *System) updateVolume(device string, attrs map[string]any) {
	value, ok := attrs[shared.AttrVolumeLevelMusic]
	if !ok {
		return
	}
	raw, ok := attrInt(value)
	if !ok {
		slog.Debug("Could not parse volume level from snapshot",
			slog.String("device", device))
		return
	}

	s.mu.Lock()
	s.volumes[device] = raw
	s.mu.Unlock()
}

// NowPlaying returns the coherent active-session view for a device.
func (s *System) NowPlaying(device string) (models.NowPlaying, bool) {
	s.mu.RLock()
	registry, ok := s.registries[device]
	rawVolume, hasVolume := s.volumes[device]
	s.mu.RUnlock()
	if !ok {
		return models.NowPlaying{}, false
	}

	selected := registry.Selected(s.timeout)
	if selected == nil {
		return models.NowPlaying{}, false
	}

	playing := models.NowPlaying{
		Device:      device,
		PackageName: selected.PackageName,
		AppName:     selected.DisplayName(),
		State:       string(selected.State),
		Title:       selected.Title,
		Artist:      selected.Artist,
		Album:       selected.Album,
		Duration:    selected.Duration,
		Position:    selected.Position,
		MediaID:     selected.MediaID,
		Image:       selected.ArtworkURL,
	}

	if cover, ok := s.covers.get(selected.MediaID); ok {
		if cover.Location != "" {
			playing.Image = cover.Location
		}
		playing.DominantColours = cover.Colours
	}

	if hasVolume && s.volumeMax > 0 {
		level := float64(rawVolume) / float64(s.volumeMax)
		playing.VolumeLevel = &level
	}

	return playing, true
}

// PlayingView is NowPlaying with an explicit idle placeholder when the
// device has no active session, for surfaces that always need a payload
// attributable to a device.
func (s *System) PlayingView(device string) models.NowPlaying {
	playing, ok := s.NowPlaying(device)
	if !ok {
		return models.NowPlaying{
			Device: device,
			State:  string(sessions.StateIdle),
		}
	}
	return playing
}

// Sessions returns every tracked session for a device plus the currently
// selectable sources.
func (s *System) Sessions(device string) (models.SessionsResponse, bool) {
	s.mu.RLock()
	registry, ok := s.registries[device]
	s.mu.RUnlock()
	if !ok {
		return models.SessionsResponse{}, false
	}

	selected := registry.Selected(s.timeout)
	now := time.Now()

	response := models.SessionsResponse{
		Device:     device,
		Sessions:   []models.SessionInfo{},
		SourceList: registry.SourceList(s.timeout),
	}
	for _, session := range registry.All() {
		response.Sessions = append(response.Sessions, models.SessionInfo{
			PackageName: session.PackageName,
			AppName:     session.DisplayName(),
			State:       string(session.State),
			Title:       session.Title,
			Artist:      session.Artist,
			Album:       session.Album,
			MediaID:     session.MediaID,
			Image:       session.ArtworkURL,
			Selected:    selected != nil && selected.PackageName == session.PackageName,
			Fresh:       !session.Stale(s.timeout, now),
		})
	}
	return response, true
}

// SelectSource switches the active session by friendly name or package.
func (s *System) SelectSource(device, source string) bool {
	s.mu.RLock()
	registry, ok := s.registries[device]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	matched, changed := registry.Select(source, s.timeout)
	if changed {
		s.publishIfChanged(device)
	}
	return matched
}

// SendCommand relays a media command to the device, targeting the currently
// selected session. A command with nothing selected is a warning, not an
// error surfaced to the device.
func (s *System) SendCommand(ctx context.Context, device, command string) error {
	switch command {
	case shared.MediaCommandPlay, shared.MediaCommandPause, shared.MediaCommandStop,
		shared.MediaCommandNext, shared.MediaCommandPrevious:
	default:
		return fmt.Errorf("unsupported media command %q", command)
	}

	s.mu.RLock()
	registry, ok := s.registries[device]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown device %q", device)
	}

	selected := registry.Selected(s.timeout)
	if selected == nil {
		slog.Warn("Cannot send media command: no active session",
			slog.String("device", device),
			slog.String("command", command))
		return nil
	}

	if err := s.commander.SendMediaCommand(ctx, device, selected.PackageName, command); err != nil {
		return err
	}
	s.requestRefresh(ctx, device)
	return nil
}

// SetVolume maps a 0..1 level onto the device's volume scale and relays it.
func (s *System) SetVolume(ctx context.Context, device string, level float64) error {
	raw := int(level*float64(s.volumeMax) + 0.5)
	if raw < 0 {
		raw = 0
	}
	if raw > s.volumeMax {
		raw = s.volumeMax
	}

	if err := s.commander.SetVolume(ctx, device, raw); err != nil {
		return err
	}

	// Optimistic update; the next snapshot corrects it if need be
	s.mu.Lock()
	s.volumes[device] = raw
	s.mu.Unlock()

	s.requestRefresh(ctx, device)
	return nil
}

func (s *System) requestRefresh(ctx context.Context, device string) {
	// Faster state feedback after a command; failure is non-critical
	if err := s.commander.RequestSensorRefresh(ctx, device); err != nil {
		slog.Debug("Failed to request sensor refresh",
			slog.String("device", device),
			slog.Any("error", err))
	}
}

// SweepStale prunes timed-out sessions across all devices and returns the
// removed packages per device. A device whose last sessions disappear this
// way triggers an operator alert.
func (s *System) SweepStale() map[string][]string {
	s.mu.RLock()
	registries := make(map[string]*sessions.Registry, len(s.registries))
	for device, registry := range s.registries {
		registries[device] = registry
	}
	s.mu.RUnlock()

	removed := make(map[string][]string)
	for device, registry := range registries {
		packages := registry.Sweep(s.timeout)
		if len(packages) == 0 {
			continue
		}
		removed[device] = packages
		slog.Info("Swept stale media sessions",
			slog.String("device", device),
			slog.Any("packages", packages))

		if registry.Len() == 0 {
			s.alerter.DeviceWentQuiet(device, packages)
		}
		s.publishIfChanged(device)
	}
	return removed
}

// publishIfChanged pushes the device's now-playing view over SSE, but only
// when it actually differs from the last push. A device going idle pushes
// the idle placeholder, so stream subscribers can tell which device it was.
func (s *System) publishIfChanged(device string) {
	playing := s.PlayingView(device)
	id := nowPlayingID(device, playing)

	s.mu.Lock()
	last := s.published[device]
	if last == id {
		s.mu.Unlock()
		return
	}
	s.published[device] = id
	s.mu.Unlock()

	if events.Server == nil {
		return
	}
	byteStream := new(bytes.Buffer)
	json.NewEncoder(byteStream).Encode(playing)
	events.Server.Publish(events.StreamPlaying, &sse.Event{Data: byteStream.Bytes()})
}

// nowPlayingID is a deterministic fingerprint of the published view, cheap
// to compare across pushes.
func nowPlayingID(device string, playing models.NowPlaying) uint64 {
	hashString := fmt.Sprintf("%s-%s-%s-%s-%s-%s-%s",
		device,
		playing.PackageName,
		playing.State,
		playing.Title,
		playing.Artist,
		playing.Album,
		playing.Image,
	)
	return xxhash.Sum64String(hashString)
}

func attrInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
