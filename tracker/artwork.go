package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/echocat/ha-companion-media-player/models"
	"github.com/echocat/ha-companion-media-player/utils"
)

// coverInfo is locally cached artwork metadata for one media ID: where the
// cover bytes are served from and the dominant colours for client theming.
type coverInfo struct {
	ImageURL string
	Location string
	Colours  []string
}

type coverCache struct {
	mu   sync.RWMutex
	byID map[string]coverInfo
}

func newCoverCache() *coverCache {
	return &coverCache{byID: make(map[string]coverInfo)}
}

func (c *coverCache) get(mediaID string) (coverInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.byID[mediaID]
	return info, ok
}

func (c *coverCache) put(mediaID string, info coverInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[mediaID] = info
}

// enrichArtwork resolves artwork for every fresh session of a device. It
// runs detached from the snapshot that triggered it: each result is applied
// through the registry, which drops writes for sessions that have since
// disappeared. There is no cancellation; every lookup is time-bounded.
func (s *System) enrichArtwork(device string) {
	s.mu.RLock()
	registry, ok := s.registries[device]
	s.mu.RUnlock()
	if !ok {
		return
	}

	changed := false
	for _, session := range registry.Fresh(s.timeout) {
		url, found := s.resolver.Resolve(context.Background(), session.MediaID, session.PackageName)
		if !found {
			if registry.SetArtworkURL(session.PackageName, "") {
				changed = true
			}
			continue
		}
		if registry.SetArtworkURL(session.PackageName, url) {
			changed = true
		}
		s.cacheCover(session.MediaID, url)
	}

	if changed {
		s.publishIfChanged(device)
	}
}

// cacheCover fetches the resolved image once, extracts its dominant
// colours, stores the bytes under the storage dir and persists the entry so
// a restart starts warm.
func (s *System) cacheCover(mediaID, imageURL string) {
	if current, ok := s.covers.get(mediaID); ok && current.ImageURL == imageURL {
		return
	}

	// A previous run may have resolved this exact image already; reuse its
	// colours rather than refetching the bytes.
	if s.store != nil {
		if entry, err := s.store.GetArtwork(mediaID); err == nil && entry.ImageURL == imageURL {
			s.covers.put(mediaID, coverInfo{
				ImageURL: imageURL,
				Colours:  entry.DominantColours,
			})
			return
		}
	}

	if s.client == nil {
		return
	}

	info := coverInfo{ImageURL: imageURL}

	image, extension, colours, err := utils.ExtractImageContent(s.client, imageURL)
	if err != nil || extension == "" {
		slog.Debug("Failed to fetch cover content",
			slog.String("media_id", mediaID),
			slog.String("image_url", imageURL),
			slog.Any("error", err))
	} else {
		location, guid := utils.BytesToGUIDLocation(image, extension)
		if err := s.saveCover(guid.String(), image, extension); err != nil {
			slog.Error("Failed to save cover",
				slog.String("media_id", mediaID),
				slog.Any("error", err))
		} else {
			info.Location = location
			info.Colours = colours
		}
	}

	s.covers.put(mediaID, info)

	if s.store == nil {
		return
	}
	if err := s.store.UpsertArtwork(models.ArtworkEntry{
		MediaID:         mediaID,
		ImageURL:        imageURL,
		DominantColours: info.Colours,
		ResolvedAt:      time.Now().Unix(),
	}); err != nil {
		slog.Error("Failed to persist artwork entry",
			slog.String("media_id", mediaID),
			slog.Any("error", err))
	}
}

func (s *System) saveCover(guid string, image []byte, extension string) error {
	return os.WriteFile(fmt.Sprintf("%s/cover.%s.%s", s.storageDir, guid, extension), image, 0644)
}

// LoadCover reads a previously saved cover for the static handler.
func (s *System) LoadCover(guid string, extension string) ([]byte, error) {
	return os.ReadFile(fmt.Sprintf("%s/cover.%s.%s", s.storageDir, guid, extension))
}

// SeedArtwork warms the cover cache from persisted entries. The resolver
// itself is seeded separately so cached lookups skip the network entirely.
func (s *System) SeedArtwork(entries []models.ArtworkEntry) map[string]string {
	urls := make(map[string]string, len(entries))
	for _, entry := range entries {
		urls[entry.MediaID] = entry.ImageURL
		s.covers.put(entry.MediaID, coverInfo{
			ImageURL: entry.ImageURL,
			Colours:  entry.DominantColours,
		})
	}
	return urls
}
