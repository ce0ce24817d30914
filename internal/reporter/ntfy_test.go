package reporter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/event"
)

func loginEvent() *event.Event {
	ev := event.New("mynas", time.Date(2026, 2, 19, 14, 32, 5, 0, time.UTC), event.KindNewLogin, "New login from 203.0.113.9")
	ev.IP = "203.0.113.9"
	ev.Source = "/var/log/auth.log"
	ev.Line = "Feb 19 14:32:05 mynas sshd[1234]: Accepted publickey for admin from 203.0.113.9 port 51234 ssh2"
	return ev
}

func TestFormatMessage(t *testing.T) {
	ev := loginEvent()
	want := "There was a successful login on `mynas` from an unknown IP address. Here's the relevant line from `/var/log/auth.log`:\n\n`" + ev.Line + "`"
	if got := FormatMessage(ev); got != want {
		t.Errorf("new login message = %q, want %q", got, want)
	}

	failed := &event.Event{
		Kind:   event.KindFailedLogin,
		Host:   "mynas",
		Source: "/var/log/auth.log",
		Line:   "sshd[1]: Connection closed by authenticating user root",
	}
	want = "There was a failed login attempt on `mynas`. Here's the relevant line from `/var/log/auth.log`:\n\n`sshd[1]: Connection closed by authenticating user root`"
	if got := FormatMessage(failed); got != want {
		t.Errorf("failed login message = %q, want %q", got, want)
	}

	pool := &event.Event{Kind: event.KindPoolHealth, Pool: "tank", Health: "FAULTED"}
	if got := FormatMessage(pool); got != "Zpool `tank` entered the `FAULTED` state." {
		t.Errorf("pool message = %q", got)
	}

	other := &event.Event{Kind: event.KindTest, Summary: "hello"}
	if got := FormatMessage(other); got != "hello" {
		t.Errorf("fallback message = %q, want summary", got)
	}
}

func TestFormatMessageReplacesBackticks(t *testing.T) {
	ev := loginEvent()
	ev.Line = "sshd[9]: Accepted publickey for `whoami` from 203.0.113.9 port 1 ssh2"

	got := FormatMessage(ev)
	want := "There was a successful login on `mynas` from an unknown IP address. Here's the relevant line from `/var/log/auth.log`:\n\n`sshd[9]: Accepted publickey for 'whoami' from 203.0.113.9 port 1 ssh2`"
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if n := strings.Count(got, "`"); n%2 != 0 {
		t.Errorf("message has %d backticks, want balanced code spans", n)
	}
}

func TestFormatTitle(t *testing.T) {
	title := FormatTitle(loginEvent())
	if !strings.Contains(title, "[mynas]") {
		t.Errorf("title should contain host, got %q", title)
	}
	if !strings.Contains(title, "New login from 203.0.113.9") {
		t.Errorf("title should contain summary, got %q", title)
	}
}

func TestTagsForKind(t *testing.T) {
	if tags := TagsForKind(event.KindPoolHealth); tags != "floppy_disk,zfs" {
		t.Errorf("pool tags = %q", tags)
	}
	if tags := TagsForKind(event.Kind("other")); tags != "warning" {
		t.Errorf("fallback tags = %q, want warning", tags)
	}
}

func TestNtfyReporterSend(t *testing.T) {
	var receivedTitle, receivedPriority, receivedTags, receivedBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedTitle = r.Header.Get("Title")
		receivedPriority = r.Header.Get("Priority")
		receivedTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		receivedBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ntfy.URL = server.URL

	rep := NewNtfy(cfg)
	if err := rep.Report(context.Background(), loginEvent()); err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	if !strings.Contains(receivedTitle, "New login") {
		t.Errorf("ntfy title = %q, should contain New login", receivedTitle)
	}
	if receivedPriority != "high" {
		t.Errorf("ntfy priority = %q, want %q", receivedPriority, "high")
	}
	if receivedTags != "key,login" {
		t.Errorf("ntfy tags = %q, want %q", receivedTags, "key,login")
	}
	if !strings.Contains(receivedBody, "successful login on `mynas`") {
		t.Errorf("ntfy body = %q", receivedBody)
	}
}

func TestNewNtfyUsesNtfyTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Ntfy.URL = "https://ntfy.sh/nas"
	cfg.Ntfy.Timeout.Duration = 15 * time.Second
	cfg.Telegram.Timeout.Duration = time.Minute

	if got := NewNtfy(cfg).client.Timeout; got != 15*time.Second {
		t.Errorf("ntfy client timeout = %v, want 15s", got)
	}
}

func TestNtfyReporterErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ntfy.URL = server.URL

	if err := NewNtfy(cfg).Report(context.Background(), loginEvent()); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestNewSelectsSink(t *testing.T) {
	cfg := config.Default()
	if _, err := New(cfg); !errors.Is(err, ErrNoSink) {
		t.Errorf("New() with no sink error = %v, want ErrNoSink", err)
	}

	cfg.Ntfy.URL = "https://ntfy.sh/nas"
	rep, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rep.(*NtfyReporter); !ok {
		t.Errorf("New() = %T, want *NtfyReporter", rep)
	}

	cfg.Telegram.APIKey = "123:abc"
	rep, err = New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rep.(*TelegramReporter); !ok {
		t.Errorf("New() = %T, want *TelegramReporter", rep)
	}
}

func TestTestEvent(t *testing.T) {
	ev := (&TestEvent{Host: "mynas"}).ToEvent()
	if ev.ID == "" || ev.Host != "mynas" || ev.Kind != event.KindTest {
		t.Errorf("test event = %+v", ev)
	}
	if !strings.Contains(FormatMessage(ev), "`mynas`") {
		t.Errorf("test message = %q", FormatMessage(ev))
	}
}
