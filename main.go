package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/echocat/ha-companion-media-player/artwork"
	"github.com/echocat/ha-companion-media-player/config"
	"github.com/echocat/ha-companion-media-player/db"
	"github.com/echocat/ha-companion-media-player/events"
	"github.com/echocat/ha-companion-media-player/migrations"
	"github.com/echocat/ha-companion-media-player/notify"
	"github.com/echocat/ha-companion-media-player/routes"
	"github.com/echocat/ha-companion-media-player/tracker"
	"github.com/echocat/ha-companion-media-player/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	store, err := db.NewSqliteStore(cfg.Companion.DbPath)
	if err != nil {
		slog.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		slog.Error("Failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	events.Init()

	client := utils.NewHTTPClient()
	resolver := artwork.NewResolver(
		artwork.NewSpotifyProvider(client),
		artwork.NewOpenGraphProvider(client),
	)

	commander := notify.NewMobileAppNotifier(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, client)
	alerter := notify.NewAlerter(cfg.Pushover.Token, cfg.Pushover.Recipient)

	system := tracker.NewSystem(tracker.Options{
		SessionTimeout: time.Duration(cfg.SessionTimeoutMinutes()) * time.Minute,
		VolumeMax:      cfg.Companion.VolumeMax,
		StorageDir:     cfg.Companion.StorageDir,
	}, resolver, commander, alerter, store, client)

	jobScheduler, err := SetupInBackground(system, resolver, store)
	if err != nil {
		slog.Error("Failed to set up background jobs", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Companion.BackgroundJobsEnabled {
		jobScheduler.Start()
		slog.Info("Background jobs have started up in the background.")
	} else {
		slog.Info("Background jobs are disabled.")
	}

	router := routes.Register(http.NewServeMux(), system, cfg.Companion.SnapshotWebhookSecret)

	slog.Info(fmt.Sprintf("Companion media player bridge is running at http://localhost:%s", cfg.Companion.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Companion.Port), router); err != nil {
		slog.Error("Server stopped", slog.Any("error", err))
		if err := jobScheduler.Shutdown(); err != nil {
			slog.Error("Failed to shut down job scheduler", slog.Any("error", err))
		}
		os.Exit(1)
	}
}
