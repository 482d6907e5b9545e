// Package notify relays commands back to companion devices through the
// Home Assistant notify service. The tracker core only decides whether and
// to which session a command applies; this package owns the transport.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/echocat/ha-companion-media-player/shared"
)

// Commander is the outbound capability the tracker calls through. Keeping
// it an interface keeps the core testable without a live Home Assistant.
type Commander interface {
	SendMediaCommand(ctx context.Context, device, packageName, command string) error
	SetVolume(ctx context.Context, device string, level int) error
	RequestSensorRefresh(ctx context.Context, device string) error
}

// MobileAppNotifier posts notify messages to the Home Assistant REST API.
// The companion app exposes one notify service per device, named
// mobile_app_<device>.
type MobileAppNotifier struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewMobileAppNotifier(baseURL, token string, client *http.Client) *MobileAppNotifier {
	return &MobileAppNotifier{
		baseURL: baseURL,
		token:   token,
		client:  client,
	}
}

type notifyMessage struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (n *MobileAppNotifier) SendMediaCommand(ctx context.Context, device, packageName, command string) error {
	return n.call(ctx, device, notifyMessage{
		Message: shared.NotifyCommandMedia,
		Data: map[string]any{
			"media_command":      command,
			"media_package_name": packageName,
		},
	})
}

func (n *MobileAppNotifier) SetVolume(ctx context.Context, device string, level int) error {
	return n.call(ctx, device, notifyMessage{
		Message: shared.NotifyCommandVolume,
		Data: map[string]any{
			"media_stream": shared.VolumeStreamMusic,
			"command":      level,
		},
	})
}

func (n *MobileAppNotifier) RequestSensorRefresh(ctx context.Context, device string) error {
	return n.call(ctx, device, notifyMessage{
		Message: shared.NotifyCommandUpdateSensors,
	})
}

func (n *MobileAppNotifier) call(ctx context.Context, device string, message notifyMessage) error {
	serviceURL := fmt.Sprintf("%s/api/services/notify/mobile_app_%s", n.baseURL, device)

	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(message); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, payload)
	if err != nil {
		return err
	}
	req.Header = http.Header{
		"Authorization": []string{fmt.Sprintf("Bearer %s", n.token)},
		"Content-Type":  []string{"application/json"},
		"User-Agent":    []string{shared.UserAgent},
	}

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify service for %s returned status %d", device, res.StatusCode)
	}
	return nil
}
