package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

// send delivers a plain-text email. In development the message is only logged.
func (s *EmailService) send(ctx context.Context, kind, to, subject, body string, attrs ...any) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", append([]any{"type", kind, "to", to, "subject", subject}, attrs...)...)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}

func (s *EmailService) SendMagicLinkEmail(ctx context.Context, email, token string) error {
	magicURL := fmt.Sprintf("%s/auth/magic-link/%s", s.appURL, token)
	subject, body := magicLinkEmailTemplate(magicURL, s.appName)
	return s.send(ctx, "magic_link", email, subject, body, "url", magicURL)
}

func (s *EmailService) SendForgotPasswordEmail(ctx context.Context, email, token string) error {
	signInURL := fmt.Sprintf("%s/auth/forgot-password/%s", s.appURL, token)
	subject, body := forgotPasswordEmailTemplate(signInURL, s.appName)
	return s.send(ctx, "forgot_password", email, subject, body, "url", signInURL)
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	dashboardURL := fmt.Sprintf("%s/app/dashboard", s.appURL)
	subject, body := welcomeEmailTemplate(name, dashboardURL, s.appName)
	return s.send(ctx, "welcome", email, subject, body, "url", dashboardURL)
}

func (s *EmailService) SendAchievementEmail(ctx context.Context, email, name string, period ledger.Period, played, goal int) error {
	dashboardURL := fmt.Sprintf("%s/app/dashboard", s.appURL)
	subject, body := achievementEmailTemplate(name, period, played, goal, dashboardURL, s.appName)
	return s.send(ctx, "achievement", email, subject, body, "period", string(period))
}
