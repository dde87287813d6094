package email

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

//go:generate mockgen -source=gateway.go -destination=mocks/gateway.go -package=mocks

// Message is a single rendered email addressed to one recipient.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	ReplyTo string
}

// Gateway delivers messages through an external provider.
// Send returns the provider's message id when it has one.
type Gateway interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// withRetry retries op with exponential backoff, at most retries extra times.
func withRetry(ctx context.Context, retries int, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
}
