package tracker

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"
)

// Notifier delivers a price alert for a product. A returned error is
// logged by the caller and never rolls back the already-recorded
// observation.
type Notifier interface {
	Notify(ctx context.Context, product Product, currentPrice decimal.Decimal) error
}

type SmtpOptions struct {
	Host     string
	Port     int
	Sender   string
	Receiver string
	Password string
}

// SmtpOptionsFromEnv reads the mail settings once at startup. The
// receiver defaults to the sender, the server to gmail's submission
// endpoint.
func SmtpOptionsFromEnv() SmtpOptions {
	opts := SmtpOptions{
		Host:     "smtp.gmail.com",
		Port:     587,
		Sender:   os.Getenv("EMAIL_SENDER"),
		Receiver: os.Getenv("EMAIL_RECEIVER"),
		Password: os.Getenv("EMAIL_PASSWORD"),
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		opts.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		opts.Port = port
	}
	if opts.Receiver == "" {
		opts.Receiver = opts.Sender
	}
	return opts
}

type EmailNotifier struct {
	opts SmtpOptions
}

func NewEmailNotifier(opts SmtpOptions) EmailNotifier {
	return EmailNotifier{opts: opts}
}

func (n EmailNotifier) Notify(ctx context.Context, product Product, currentPrice decimal.Decimal) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()

	if n.opts.Sender == "" || n.opts.Password == "" {
		err := fmt.Errorf("email configuration incomplete, set EMAIL_SENDER and EMAIL_PASSWORD")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing credentials")
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Price Tracker <%s>", n.opts.Sender)
	mail.To = []string{n.opts.Receiver}
	mail.Subject = fmt.Sprintf("Price Alert: %s", product.Name)

	body := fmt.Sprintf(`<html>
<body>
	<h2>Price Alert for %s</h2>
	<p>Good news! The price has dropped to <strong>$%s</strong></p>
	<p>This is below your target price of <strong>$%s</strong></p>
	<p><a href="%s">Click here to view the product</a></p>
	<hr>
	<p><small>This alert was sent from your Price Tracker application.</small></p>
</body>
</html>`,
		product.Name,
		currentPrice.StringFixed(2),
		product.TargetPrice.StringFixed(2),
		product.Url,
	)
	mail.HTML = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.opts.Host, n.opts.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.opts.Sender, n.opts.Password, n.opts.Host),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}
