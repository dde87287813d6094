package email

import (
	"context"

	"github.com/cockroachdb/errors"
	"gopkg.in/gomail.v2"
)

// SMTPGateway sends through a plain SMTP relay, e.g. MailHog in development.
type SMTPGateway struct {
	Host     string
	Port     int
	User     string
	Password string
	Retries  int
}

func (s *SMTPGateway) Send(ctx context.Context, msg Message) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	err := withRetry(ctx, s.Retries, func() error {
		return d.DialAndSend(m)
	})
	if err != nil {
		return "", errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return "", nil
}
