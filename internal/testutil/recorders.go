package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/internal/mailer"
)

// RecordingSender keeps every message in memory. Set Fail to simulate a
// broken mail backend.
type RecordingSender struct {
	mu       sync.Mutex
	Fail     bool
	messages []mailer.Message
}

var ErrMailDown = errors.New("mail backend unavailable")

func (r *RecordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrMailDown
	}
	r.messages = append(r.messages, mailer.Message{To: to, Subject: subject, Body: body})
	return nil
}

func (r *RecordingSender) Messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.messages...)
}

// Last returns the most recent message, or false when none was sent.
func (r *RecordingSender) Last() (mailer.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return mailer.Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// RecordingPublisher keeps published activity events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []broker.Event
}

func (r *RecordingPublisher) Publish(_ context.Context, event broker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Events() []broker.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broker.Event(nil), r.events...)
}
