package service

import (
	"fmt"

	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
)

func forgotPasswordEmailTemplate(signInURL, appName string) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`You requested to reset your password. For security, we'll remove your password and sign you in with this link:
%s

This link expires in 10 minutes and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, signInURL, appName)

	return subject, body
}

func magicLinkEmailTemplate(magicURL, appName string) (string, string) {
	subject := fmt.Sprintf("Sign in to %s", appName)
	body := fmt.Sprintf(`Click this link to sign in to your account:
%s

This link expires in 10 minutes and can only be used once.

If you didn't request this, ignore this email.

Best,
The %s Team`, magicURL, appName)

	return subject, body
}

func welcomeEmailTemplate(name, dashboardURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Log your first session and set your daily, weekly and monthly goals:
%s

Best,
The %s Team`, name, dashboardURL, appName)

	return subject, body
}

func achievementEmailTemplate(name string, period ledger.Period, played, goal int, dashboardURL, appName string) (string, string) {
	subject := fmt.Sprintf("%s goal reached on %s 🎉", period.Title(), appName)
	body := fmt.Sprintf(`Hi %s,

You reached your %s goal: %d of %d minutes played.

Your circle has been told. See the feed: %s

Best,
The %s Team`, name, period, played, goal, dashboardURL, appName)

	return subject, body
}
