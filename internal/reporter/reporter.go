// Package reporter delivers event notifications to a messaging service.
package reporter

import (
	"context"
	"errors"

	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/event"
)

// Reporter sends a single notification. Send failures are returned as-is;
// there is no retry.
type Reporter interface {
	Report(ctx context.Context, ev *event.Event) error
}

// ErrNoSink is returned by New when no transport is configured.
var ErrNoSink = errors.New("no notification sink configured")

// New returns the reporter for the configured transport. Telegram wins
// when both Telegram and ntfy are configured.
func New(cfg *config.Config) (Reporter, error) {
	switch {
	case cfg.Telegram.APIKey != "":
		return NewTelegram(cfg), nil
	case cfg.Ntfy.URL != "":
		return NewNtfy(cfg), nil
	}
	return nil, ErrNoSink
}
