// Package notify delivers rendered messages to people and operators. Every
// notifier is best effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message kinds.
const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingCopy      = "booking.operator_copy"
	KindFeedback         = "feedback.received"
)

// ErrNoRecipients is returned when a message has no usable address.
var ErrNoRecipients = errors.New("notify: message has no recipients")

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a rendered notification.
type Message struct {
	Kind        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
	// Metadata carries identifiers for structured consumers such as the
	// event publisher.
	Metadata map[string]string
}

// Recipients returns the trimmed, non-empty addresses of the message.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Notifier attempts delivery of a message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Fanout hands every message to each notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for i, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
