// Package notify delivers outbound email. Senders treat delivery as
// best-effort: a failed send never rolls back the state change that
// triggered it.
package notify

import "context"

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Discard drops every message. Used when mail is disabled.
type Discard struct{}

func (Discard) Send(ctx context.Context, msg Message) error { return nil }
