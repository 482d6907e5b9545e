package db

import (
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/echocat/ha-companion-media-player/models"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) GetArtwork(mediaID string) (models.ArtworkEntry, error) {
	entry := models.ArtworkEntry{}
	err := s.DB.Get(&entry,
		"SELECT media_id, image_url, dominant_colours, resolved_at FROM artwork_cache WHERE media_id = ?",
		mediaID)
	return entry, err
}

func (s *SqliteStore) GetAllArtwork() ([]models.ArtworkEntry, error) {
	entries := []models.ArtworkEntry{}
	err := s.DB.Select(&entries,
		"SELECT media_id, image_url, dominant_colours, resolved_at FROM artwork_cache ORDER BY resolved_at DESC")
	return entries, err
}

func (s *SqliteStore) UpsertArtwork(entry models.ArtworkEntry) error {
	query := `
	INSERT INTO artwork_cache (media_id, image_url, dominant_colours, resolved_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (media_id) DO UPDATE SET
	image_url = excluded.image_url,
	dominant_colours = excluded.dominant_colours,
	resolved_at = excluded.resolved_at
	`
	_, err := s.DB.Exec(query, entry.MediaID, entry.ImageURL, entry.DominantColours, entry.ResolvedAt)
	return err
}

// PruneArtwork deletes rows resolved before the given unix timestamp and
// returns how many were removed.
func (s *SqliteStore) PruneArtwork(olderThan int64) (int64, error) {
	result, err := s.DB.Exec("DELETE FROM artwork_cache WHERE resolved_at < ?", olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
