// Package mailer provides the outbound email transports used by the
// dispatch engine.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer attempts to deliver one message to one address. A non-nil
// error means the attempt failed; callers decide what that means.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// LogMailer logs deliveries instead of sending them (development/testing).
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Deliver(ctx context.Context, to, subject, body string) error {
	m.logger.Info("logging email delivery (development mode)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}
