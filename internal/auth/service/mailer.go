package service

import (
	"context"
	"log/slog"
)

// Mailer delivers the out-of-band secrets the lifecycle flows mint:
// the email verification link token and the password reset code.
// Delivery is someone else's problem; the orchestrator only hands over
// the recipient and the secret.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetCode(ctx context.Context, email, code string) error
}

// LogMailer is the development stand-in: it logs that a message was
// queued without ever logging the secret itself.
type LogMailer struct{}

func (LogMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	slog.InfoContext(ctx, "verification email queued", "email", email)
	return nil
}

func (LogMailer) SendPasswordResetCode(ctx context.Context, email, code string) error {
	slog.InfoContext(ctx, "password reset code queued", "email", email)
	return nil
}
