package tracker

import (
	"context"
	"testing"

	"pricetracker/lib/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSmtpOptionsFromEnv(t *testing.T) {
	t.Setenv("EMAIL_SENDER", "alerts@example.com")
	t.Setenv("EMAIL_RECEIVER", "")
	t.Setenv("EMAIL_PASSWORD", "app-token")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")

	opts := SmtpOptionsFromEnv()
	require.Equal(t, "alerts@example.com", opts.Sender)
	require.Equal(t, "alerts@example.com", opts.Receiver)
	require.Equal(t, "smtp.gmail.com", opts.Host)
	require.Equal(t, 587, opts.Port)

	t.Setenv("EMAIL_RECEIVER", "me@example.com")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "2525")

	opts = SmtpOptionsFromEnv()
	require.Equal(t, "me@example.com", opts.Receiver)
	require.Equal(t, "mail.example.com", opts.Host)
	require.Equal(t, 2525, opts.Port)
}

func TestNotifyWithoutCredentials(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:tracker")
	defer cleanup()

	notifier := NewEmailNotifier(SmtpOptions{Host: "smtp.gmail.com", Port: 587})
	err := notifier.Notify(context.Background(), Product{Name: "Laptop"}, decimal.NewFromInt(10))
	require.Error(t, err)
}
