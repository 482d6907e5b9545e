package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gregdel/pushover"
)

// Alerter pings an operator via pushover when a device goes quiet, i.e.
// the staleness sweep removed its last remaining sessions. Devices with a
// broken companion app tend to fail silently otherwise.
type Alerter struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

// NewAlerter returns nil when pushover is not configured; a nil Alerter
// simply drops alerts.
func NewAlerter(token, recipient string) *Alerter {
	if token == "" || recipient == "" {
		return nil
	}
	return &Alerter{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(recipient),
	}
}

func (a *Alerter) DeviceWentQuiet(device string, removed []string) {
	if a == nil {
		return
	}
	message := &pushover.Message{
		Message:   fmt.Sprintf("All media sessions on %s timed out (%v). The companion app may have stopped reporting.", device, removed),
		Title:     fmt.Sprintf("%s stopped reporting media sessions", device),
		Timestamp: time.Now().Unix(),
	}
	if _, err := a.app.SendMessage(message, a.recipient); err != nil {
		slog.Error("Failed to send stale device alert",
			slog.String("device", device),
			slog.Any("error", err))
	}
}
