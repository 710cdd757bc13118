// Package push sends device notifications for SEND_NOTIFICATION jobs.
package push

import (
	"context"
	"errors"
	"fmt"

	"evently-backend/internal/config"
)

var ErrNoDeviceToken = errors.New("notification has no device token")

type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

// Sender delivers one notification and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, n Notification) (string, error)
}

func New(ctx context.Context, cfg config.PushConfig) (Sender, error) {
	switch cfg.Provider {
	case "fcm":
		return NewFCMSender(ctx, cfg.CredentialsFile, cfg.ProjectID)
	case "log", "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unsupported push provider: %s", cfg.Provider)
	}
}
