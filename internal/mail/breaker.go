package mail

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"evently-backend/internal/config"
	"evently-backend/internal/logger"
)

type breakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerGateway stops calling next after MaxFailures consecutive failures
// until the breaker timeout elapses. Rejected calls fail with gobreaker.ErrOpenState.
func NewBreakerGateway(name string, next Gateway, cfg config.BreakerConfig) Gateway {
	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "mail-" + name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Mail circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &breakerGateway{next: next, cb: cb}
}

func (g *breakerGateway) Send(ctx context.Context, msg Message) (string, error) {
	return g.cb.Execute(func() (string, error) {
		id, err := g.next.Send(ctx, msg)
		if err == nil && id == "" {
			err = ErrNoMessageID
		}
		return id, err
	})
}

// IsCircuitOpen reports whether err came from an open breaker rather than the provider.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
