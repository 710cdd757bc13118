package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"

	"evently-backend/internal/domain"
	"evently-backend/internal/logger"
)

type retrieveFunc func(ctx context.Context, id string) (*stripe.PaymentIntent, error)

// MetadataEventID is the PaymentIntent metadata key the checkout flow stamps with the event id.
const MetadataEventID = "event_id"

// StripeVerifier treats the payment reference as a PaymentIntent id. The intent
// must have settled, carry the event id in its metadata and cover the event price.
type StripeVerifier struct {
	retrieve retrieveFunc
}

func NewStripeVerifier(secretKey string) *StripeVerifier {
	sc := stripe.NewClient(secretKey)
	return &StripeVerifier{
		retrieve: func(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
			return sc.V1PaymentIntents.Retrieve(ctx, id, nil)
		},
	}
}

func (v *StripeVerifier) Verify(ctx context.Context, event *domain.Event, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.ErrPaymentRequired
	}

	logger.ExternalServiceCall("stripe", "retrieve_payment_intent", "payment_ref", ref)
	pi, err := v.retrieve(ctx, ref)
	logger.ExternalServiceResult("stripe", "retrieve_payment_intent", err, "payment_ref", ref)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return domain.ErrPaymentNotVerified
		}
		return fmt.Errorf("failed to verify payment: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		logger.Warn("Payment intent not settled", "payment_ref", ref, "status", string(pi.Status))
		return domain.ErrPaymentNotVerified
	}
	if pi.Metadata[MetadataEventID] != event.ID {
		logger.Warn("Payment intent belongs to another event", "payment_ref", ref, "event_id", event.ID,
			"intent_event_id", pi.Metadata[MetadataEventID])
		return domain.ErrPaymentNotVerified
	}
	if event.PriceCents != nil && pi.AmountReceived < *event.PriceCents {
		logger.Warn("Payment intent does not cover the event price", "payment_ref", ref, "event_id", event.ID,
			"amount_received", pi.AmountReceived, "price_cents", *event.PriceCents)
		return domain.ErrPaymentNotVerified
	}
	return nil
}
