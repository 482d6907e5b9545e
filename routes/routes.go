// Package routes wires the HTTP surface: the snapshot webhook, the
// per-device read endpoints, the control endpoints relayed back to the
// device and the SSE stream.
package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/rs/cors"

	"github.com/echocat/ha-companion-media-player/events"
	"github.com/echocat/ha-companion-media-player/models"
	"github.com/echocat/ha-companion-media-player/tracker"
)

const commandTimeout = 10 * time.Second

func renderJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func renderJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	res := map[string]string{"error": message}
	json.NewEncoder(w).Encode(res)
}

func renderJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// Register attaches every route to the mux and returns the final handler
// chain. webhookSecret guards the snapshot webhook; an empty secret skips
// signature validation, which only makes sense on a trusted network.
func Register(mux *http.ServeMux, system *tracker.System, webhookSecret string) http.Handler {

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "This is the companion media player bridge. Point a Home Assistant automation at it.\n")
	})

	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, http.StatusOK, "This is the base of the companion media player API")
	})

	mux.HandleFunc("GET /api/v1/devices", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, map[string][]string{"devices": system.Devices()})
	})

	mux.HandleFunc("POST /api/v1/devices/{device}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		device := r.PathValue("device")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		if webhookSecret != "" {
			signature := r.Header.Get("X-Companion-Signature")
			if signature == "" {
				renderJSONError(w, http.StatusUnauthorized, "no signature was provided")
				return
			}
			if err := hmacext.Validate(body, fmt.Sprintf("sha256=%s", signature), webhookSecret); err != nil {
				slog.Warn("Snapshot failed signature validation",
					slog.String("device", device),
					slog.Any("error", err))
				renderJSONError(w, http.StatusUnauthorized, "signature failed validation")
				return
			}
		}

		var payload models.SnapshotPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to unmarshal request body")
			return
		}

		applied := system.HandleSnapshot(device, payload)
		renderJSON(w, map[string]bool{"applied": applied})
	})

	mux.HandleFunc("GET /api/v1/devices/{device}/playing", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, system.PlayingView(r.PathValue("device")))
	})

	mux.HandleFunc("GET /api/v1/devices/{device}/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, ok := system.Sessions(r.PathValue("device"))
		if !ok {
			renderJSONError(w, http.StatusNotFound, "unknown device")
			return
		}
		renderJSON(w, sessions)
	})

	mux.HandleFunc("POST /api/v1/devices/{device}/source", func(w http.ResponseWriter, r *http.Request) {
		var req models.SourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Source == "" {
			renderJSONError(w, http.StatusBadRequest, "a source is required")
			return
		}
		if !system.SelectSource(r.PathValue("device"), req.Source) {
			renderJSONError(w, http.StatusNotFound, "no such source is currently available")
			return
		}
		renderJSONMessage(w, http.StatusOK, "source selected")
	})

	mux.HandleFunc("POST /api/v1/devices/{device}/command", func(w http.ResponseWriter, r *http.Request) {
		var req models.CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
			renderJSONError(w, http.StatusBadRequest, "a command is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()

		if err := system.SendCommand(ctx, r.PathValue("device"), req.Command); err != nil {
			renderJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		renderJSONMessage(w, http.StatusOK, "command relayed")
	})

	mux.HandleFunc("POST /api/v1/devices/{device}/volume", func(w http.ResponseWriter, r *http.Request) {
		var req models.VolumeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderJSONError(w, http.StatusBadRequest, "a level is required")
			return
		}
		if req.Level < 0 || req.Level > 1 {
			renderJSONError(w, http.StatusBadRequest, "level must be between 0 and 1")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()

		if err := system.SetVolume(ctx, r.PathValue("device"), req.Level); err != nil {
			renderJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		renderJSONMessage(w, http.StatusOK, "volume relayed")
	})

	mux.HandleFunc("GET /static/", func(w http.ResponseWriter, r *http.Request) {
		cover := strings.TrimPrefix(r.URL.Path, "/static/")
		// cover.<guid>.<extension>
		coverSegments := strings.Split(cover, ".")
		if len(coverSegments) != 3 || coverSegments[0] != "cover" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		guid := coverSegments[1]
		extension := coverSegments[2]
		image, err := system.LoadCover(guid, extension)
		if err != nil {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31622400")
		w.Header().Set("Content-Type", fmt.Sprintf("image/%s", extension))
		w.Write(image)
	})

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		events.Server.ServeHTTP(w, r)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept, X-Companion-Signature"},
	})

	return c.Handler(mux)
}
