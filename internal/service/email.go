package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional mail through Resend. In development (or
// without an API key) sends are logged instead of dispatched, so the flows
// stay testable locally.
type EmailService struct {
	client       *resend.Client
	fromEmail    string
	clientOrigin string
	appName      string
	isDev        bool
}

func NewEmailService(apiKey, fromEmail, clientOrigin, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:       client,
		fromEmail:    fromEmail,
		clientOrigin: clientOrigin,
		appName:      appName,
		isDev:        isDev,
	}
}

// SendVerificationEmail mails the verification link for the given token.
// The link lands on the SPA, which calls GET /auth/verify with the token.
func (s *EmailService) SendVerificationEmail(ctx context.Context, email, name, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.clientOrigin, url.QueryEscape(token))
	subject, body := verificationEmailTemplate(name, verifyURL, s.appName)

	return s.send(ctx, "verification", email, subject, body)
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	subject, body := welcomeEmailTemplate(name, s.appName)

	return s.send(ctx, "welcome", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, email, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", email, "subject", subject, "body", body)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", email)
	}
	return err
}
