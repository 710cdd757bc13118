// Package payment checks the payment reference supplied when joining a paid event.
package payment

import (
	"context"
	"strings"

	"evently-backend/internal/config"
	"evently-backend/internal/domain"
)

type Verifier interface {
	// Verify returns nil when ref proves payment for event, domain.ErrPaymentNotVerified
	// when it does not, and a wrapped error when the provider could not be asked.
	Verify(ctx context.Context, event *domain.Event, ref string) error
}

func New(cfg config.PaymentConfig) Verifier {
	if cfg.StripeSecretKey != "" {
		return NewStripeVerifier(cfg.StripeSecretKey)
	}
	return PresenceVerifier{}
}

// PresenceVerifier accepts any non-blank reference.
type PresenceVerifier struct{}

func (PresenceVerifier) Verify(ctx context.Context, event *domain.Event, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return domain.ErrPaymentRequired
	}
	return nil
}
