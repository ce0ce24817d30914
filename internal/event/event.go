// Package event defines the core data model for nas-notifier events.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies the type of host event.
type Kind string

const (
	KindNewLogin    Kind = "new_login"
	KindFailedLogin Kind = "failed_login"
	KindPoolHealth  Kind = "pool_health"

	// Synthetic kinds sent by the CLI. They are never detected.
	KindDigest Kind = "digest"
	KindTest   Kind = "test"
)

// Event represents a detected condition that should be reported.
type Event struct {
	ID        string
	Host      string
	Timestamp time.Time
	Kind      Kind
	Summary   string

	// Login events.
	IP     string
	Line   string
	Source string

	// Pool health events.
	Pool   string
	Health string
}

// New creates a new Event with a generated UUID and the given timestamp.
func New(host string, ts time.Time, kind Kind, summary string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Host:      host,
		Timestamp: ts,
		Kind:      kind,
		Summary:   summary,
	}
}

// Label returns a human-readable label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindNewLogin:
		return "New Login IP"
	case KindFailedLogin:
		return "Failed Login"
	case KindPoolHealth:
		return "Pool Health"
	case KindDigest:
		return "Digest"
	case KindTest:
		return "Test"
	default:
		return string(k)
	}
}
