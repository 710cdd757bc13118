package mail

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"evently-backend/internal/config"
	"evently-backend/internal/logger"
)

type smtpGateway struct {
	dialer *gomail.Dialer
	from   *netmail.Address
}

func NewSMTPGateway(cfg config.SMTPConfig, from *netmail.Address) Gateway {
	return &smtpGateway{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

func (g *smtpGateway) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// SMTP relays do not hand back an id, so the Message-ID header is ours.
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(g.from.Address))

	m := gomail.NewMessage()
	m.SetAddressHeader("From", g.from.Address, g.from.Name)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	} else {
		m.SetBody("text/html", msg.HTMLBody)
	}

	logger.ExternalServiceCall("smtp", "send", "to", msg.To)
	err := g.dialer.DialAndSend(m)
	logger.ExternalServiceResult("smtp", "send", err, "to", msg.To)
	if err != nil {
		return "", fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return messageID, nil
}

func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[at+1:]
	}
	return "localhost"
}
