package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/event"
)

const telegramAPI = "https://api.telegram.org"

// TelegramReporter sends event notifications to a Telegram user via the
// Bot API.
type TelegramReporter struct {
	baseURL string
	apiKey  string
	chatID  string
	client  *http.Client
}

// NewTelegram creates a new TelegramReporter. A zero telegram.timeout
// leaves sends unbounded.
func NewTelegram(cfg *config.Config) *TelegramReporter {
	return &TelegramReporter{
		baseURL: telegramAPI,
		apiKey:  cfg.Telegram.APIKey,
		chatID:  strconv.FormatInt(cfg.Telegram.UserID, 10),
		client: &http.Client{
			Timeout: cfg.Telegram.Timeout.Duration,
		},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Report sends the event's Markdown message to the configured user.
func (r *TelegramReporter) Report(ctx context.Context, ev *event.Event) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    r.chatID,
		Text:      FormatMessage(ev),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("encoding telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", r.baseURL, r.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return fmt.Errorf("sending telegram notification: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	slog.Info("notification sent", "sink", "telegram", "kind", ev.Kind, "summary", ev.Summary)
	return nil
}

// redactURLError strips the request URL from a transport error.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
