package notify

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMobileAppNotifier_SendMediaCommand(t *testing.T) {
	defer gock.Off()

	gock.New("http://ha.local:8123").
		Post("/api/services/notify/mobile_app_pixel_7").
		MatchHeader("Authorization", "Bearer secret").
		JSON(map[string]any{
			"message": "command_media",
			"data": map[string]any{
				"media_command":      "pause",
				"media_package_name": "com.spotify.music",
			},
		}).
		Reply(200).
		JSON([]any{})

	n := NewMobileAppNotifier("http://ha.local:8123", "secret", &http.Client{})

	err := n.SendMediaCommand(context.Background(), "pixel_7", "com.spotify.music", "pause")
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestMobileAppNotifier_SetVolume(t *testing.T) {
	defer gock.Off()

	gock.New("http://ha.local:8123").
		Post("/api/services/notify/mobile_app_pixel_7").
		JSON(map[string]any{
			"message": "command_volume_level",
			"data": map[string]any{
				"media_stream": "music_stream",
				"command":      11,
			},
		}).
		Reply(200).
		JSON([]any{})

	n := NewMobileAppNotifier("http://ha.local:8123", "secret", &http.Client{})

	require.NoError(t, n.SetVolume(context.Background(), "pixel_7", 11))
	assert.True(t, gock.IsDone())
}

func TestMobileAppNotifier_RequestSensorRefresh(t *testing.T) {
	defer gock.Off()

	gock.New("http://ha.local:8123").
		Post("/api/services/notify/mobile_app_pixel_7").
		JSON(map[string]any{"message": "command_update_sensors"}).
		Reply(200).
		JSON([]any{})

	n := NewMobileAppNotifier("http://ha.local:8123", "secret", &http.Client{})

	require.NoError(t, n.RequestSensorRefresh(context.Background(), "pixel_7"))
	assert.True(t, gock.IsDone())
}

func TestMobileAppNotifier_BadStatusIsAnError(t *testing.T) {
	defer gock.Off()

	gock.New("http://ha.local:8123").
		Post("/api/services/notify/mobile_app_pixel_7").
		Reply(401)

	n := NewMobileAppNotifier("http://ha.local:8123", "wrong", &http.Client{})

	err := n.SendMediaCommand(context.Background(), "pixel_7", "com.spotify.music", "play")
	assert.Error(t, err)
}

func TestAlerter_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewAlerter("", ""))
	assert.Nil(t, NewAlerter("token", ""))

	// Calling through a nil alerter must be safe
	var a *Alerter
	a.DeviceWentQuiet("pixel_7", []string{"com.spotify.music"})
}
