package email

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/resend/resend-go/v2"
)

// ResendGateway sends through the Resend HTTP API.
type ResendGateway struct {
	client  *resend.Client
	retries int
}

func NewResendGateway(apiKey string, retries int) *ResendGateway {
	return &ResendGateway{
		client:  resend.NewClient(apiKey),
		retries: retries,
	}
}

func (g *ResendGateway) Send(ctx context.Context, msg Message) (string, error) {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}

	var id string
	err := withRetry(ctx, g.retries, func() error {
		sent, err := g.client.Emails.SendWithContext(ctx, params)
		if err != nil {
			return err
		}
		id = sent.Id
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "resend send to %s", msg.To)
	}
	return id, nil
}
