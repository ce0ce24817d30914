package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/event"
)

// NtfyReporter sends event notifications to an ntfy server.
type NtfyReporter struct {
	url      string
	priority string
	client   *http.Client
}

// NewNtfy creates a new NtfyReporter.
func NewNtfy(cfg *config.Config) *NtfyReporter {
	return &NtfyReporter{
		url:      cfg.Ntfy.URL,
		priority: cfg.Ntfy.Priority,
		client: &http.Client{
			Timeout: cfg.Ntfy.Timeout.Duration,
		},
	}
}

// Report posts the event message to the ntfy topic.
func (r *NtfyReporter) Report(ctx context.Context, ev *event.Event) error {
	title := FormatTitle(ev)
	body := FormatMessage(ev)
	tags := TagsForKind(ev.Kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)
	req.Header.Set("Markdown", "yes")
	if r.priority != "" {
		req.Header.Set("Priority", r.priority)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	slog.Info("notification sent", "sink", "ntfy", "kind", ev.Kind, "summary", ev.Summary, "priority", r.priority)
	return nil
}
