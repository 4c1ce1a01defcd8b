package circuitbreaker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Mailer mirrors the notify.Mailer interface to avoid circular imports.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// ProtectedMailer wraps a Mailer with a CircuitBreaker. When the email
// provider starts failing, the circuit opens and delivery attempts
// fail fast. A rejection is still an ordinary delivery failure to the
// caller, so dispatch records it as a failed notification.
type ProtectedMailer struct {
	mailer  Mailer
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewProtectedMailer wraps a mailer with circuit breaker protection.
func NewProtectedMailer(mailer Mailer, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedMailer {
	return &ProtectedMailer{
		mailer:  mailer,
		breaker: breaker,
		logger:  logger,
	}
}

// Deliver attempts a delivery through the circuit breaker.
func (p *ProtectedMailer) Deliver(ctx context.Context, to, subject, body string) error {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected delivery",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("to", to),
			zap.String("state", p.breaker.GetState().String()),
		)
		return fmt.Errorf("%w: %s mailer unavailable", ErrCircuitOpen, p.breaker.config.Name)
	}

	if err := p.mailer.Deliver(ctx, to, subject, body); err != nil {
		p.breaker.RecordFailure()
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}

// Breaker returns the underlying circuit breaker for monitoring.
func (p *ProtectedMailer) Breaker() *CircuitBreaker {
	return p.breaker
}
