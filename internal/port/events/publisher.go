// Package events defines the port for publishing migration progress events.
package events

import "context"

// Publisher sends a JSON payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Nop is a Publisher that drops everything; used when no broker is
// configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
