package mailer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Throttled caps the outgoing mail rate of the wrapped Sender.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

func NewThrottled(next Sender, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Send(ctx context.Context, to, subject, body string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, to, subject, body)
}

// Close releases the wrapped sender when it holds resources.
func (t *Throttled) Close() error {
	if c, ok := t.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
