package main

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/echocat/ha-companion-media-player/artwork"
	"github.com/echocat/ha-companion-media-player/db"
	"github.com/echocat/ha-companion-media-player/tracker"
)

const (
	sweepInterval        = 5 * time.Minute
	artworkPruneInterval = time.Hour

	// Persisted artwork entries only exist to warm the cache after a
	// redeploy, so anything this old has earned a re-resolve.
	persistedArtworkMaxAge = 30 * 24 * time.Hour
)

func SetupInBackground(system *tracker.System, resolver *artwork.Resolver, store db.Store) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	s.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(system.SweepStale),
	)

	s.NewJob(
		gocron.DurationJob(artworkPruneInterval),
		gocron.NewTask(func() {
			resolver.Prune()
			cutoff := time.Now().Add(-persistedArtworkMaxAge).Unix()
			if _, err := store.PruneArtwork(cutoff); err != nil {
				slog.Warn("Failed to prune persisted artwork", slog.Any("error", err))
			}
		}),
	)

	// If we're redeployed, we start warm from the persisted artwork cache
	entries, err := store.GetAllArtwork()
	if err != nil {
		slog.Warn("Failed to preload artwork cache", slog.Any("error", err))
	} else {
		resolver.Seed(system.SeedArtwork(entries))
		slog.Info("Preloaded artwork cache", slog.Int("entries", len(entries)))
	}

	return s, nil
}
