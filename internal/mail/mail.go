// Package mail delivers transactional email through a pluggable gateway.
package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"

	"evently-backend/internal/config"
)

// ErrNoMessageID is returned when a provider accepted the call but did not confirm delivery.
var ErrNoMessageID = errors.New("mail gateway returned no message id")

type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Gateway sends one message and returns the provider's message id. An empty id is a failed send.
type Gateway interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New builds the configured gateway wrapped in a circuit breaker.
func New(cfg config.MailConfig) (Gateway, error) {
	from, err := netmail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid mail from address %q: %w", cfg.From, err)
	}

	var gw Gateway
	switch cfg.Provider {
	case "smtp":
		gw = NewSMTPGateway(cfg.SMTP, from)
	case "sendgrid":
		gw = NewSendGridGateway(cfg.SendGrid.APIKey, from)
	case "log":
		gw = NewLogGateway()
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.Provider)
	}

	return NewBreakerGateway(cfg.Provider, gw, cfg.Breaker), nil
}
