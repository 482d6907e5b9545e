// Package db persists the artwork lookup cache so that a restart does not
// re-hammer the providers. Session state itself is deliberately not
// persisted; it is ephemeral by nature and rebuilt from the next snapshot.
package db

import (
	"embed"

	"github.com/echocat/ha-companion-media-player/models"
)

type Store interface {
	ApplyMigrations(migrations embed.FS) error
	GetArtwork(mediaID string) (models.ArtworkEntry, error)
	GetAllArtwork() ([]models.ArtworkEntry, error)
	UpsertArtwork(entry models.ArtworkEntry) error
	PruneArtwork(olderThan int64) (int64, error)
	Close() error
}
