package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocat/ha-companion-media-player/models"
	"github.com/echocat/ha-companion-media-player/tracker"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, _, _ string) (string, bool) {
	return "", false
}

type stubCommander struct {
	lastCommand string
	lastVolume  int
}

func (s *stubCommander) SendMediaCommand(_ context.Context, _, _, command string) error {
	s.lastCommand = command
	return nil
}

func (s *stubCommander) SetVolume(_ context.Context, _ string, level int) error {
	s.lastVolume = level
	return nil
}

func (s *stubCommander) RequestSensorRefresh(_ context.Context, _ string) error {
	return nil
}

func newTestHandler(t *testing.T, secret string) (http.Handler, *stubCommander) {
	t.Helper()
	commander := &stubCommander{}
	system := tracker.NewSystem(tracker.Options{
		SessionTimeout: 30 * time.Minute,
		VolumeMax:      15,
		StorageDir:     t.TempDir(),
	}, stubResolver{}, commander, nil, nil, nil)
	return Register(http.NewServeMux(), system, secret), commander
}

func snapshotBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.SnapshotPayload{
		State: "ok",
		Attributes: map[string]any{
			"media_id_com.spotify.music":       "spotify:track:abc",
			"playback_state_com.spotify.music": "Playing",
			"title_com.spotify.music":          "Song",
		},
	})
	require.NoError(t, err)
	return body
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postSnapshot(handler http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/snapshot", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Companion-Signature", signature)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestSnapshotWebhook_NoSecretConfigured(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	recorder := postSnapshot(handler, snapshotBody(t), "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"applied": true}`, recorder.Body.String())
}

func TestSnapshotWebhook_ValidSignature(t *testing.T) {
	handler, _ := newTestHandler(t, "hunter2")

	body := snapshotBody(t)
	recorder := postSnapshot(handler, body, sign(body, "hunter2"))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSnapshotWebhook_RejectsBadSignature(t *testing.T) {
	handler, _ := newTestHandler(t, "hunter2")

	body := snapshotBody(t)
	recorder := postSnapshot(handler, body, sign(body, "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSnapshotWebhook_RejectsMissingSignature(t *testing.T) {
	handler, _ := newTestHandler(t, "hunter2")

	recorder := postSnapshot(handler, snapshotBody(t), "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSnapshotWebhook_RejectsMalformedBody(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	recorder := postSnapshot(handler, []byte("{nope"), "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPlayingEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/pixel_7/playing", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var playing models.NowPlaying
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &playing))
	assert.Equal(t, "com.spotify.music", playing.PackageName)
	assert.Equal(t, "playing", playing.State)
}

func TestPlayingEndpoint_UnknownDeviceReportsIdle(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/never_seen/playing", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var playing models.NowPlaying
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &playing))
	assert.Equal(t, "never_seen", playing.Device)
	assert.Equal(t, "idle", playing.State)
	assert.Empty(t, playing.PackageName)
}

func TestSessionsEndpoint_UnknownDevice(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/never_seen/sessions", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDevicesEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"devices": ["pixel_7"]}`, recorder.Body.String())
}

func TestCommandEndpoint(t *testing.T) {
	handler, commander := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	body := bytes.NewBufferString(`{"command": "pause"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/command", body)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "pause", commander.lastCommand)
}

func TestCommandEndpoint_RejectsUnknownCommand(t *testing.T) {
	handler, _ := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	body := bytes.NewBufferString(`{"command": "eject"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/command", body)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSourceEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	body := bytes.NewBufferString(`{"source": "Spotify"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/source", body)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)

	body = bytes.NewBufferString(`{"source": "Netflix"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/source", body)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	body = bytes.NewBufferString(`{"source": ""}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/source", body)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestVolumeEndpoint(t *testing.T) {
	handler, commander := newTestHandler(t, "")
	require.Equal(t, http.StatusOK, postSnapshot(handler, snapshotBody(t), "").Code)

	body := bytes.NewBufferString(`{"level": 0.5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/volume", body)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 8, commander.lastVolume)

	body = bytes.NewBufferString(`{"level": 1.5}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/pixel_7/volume", body)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStaticEndpoint_RejectsMalformedPath(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/static/whatever", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStaticEndpoint_MissingCoverIsGone(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/static/cover.abc123.jpeg", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusGone, recorder.Code)
}
