// Package classifier matches auth log lines to login events using substring
// rules and IPv4 token extraction.
package classifier

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/event"
)

// Options controls which events the classifier emits.
type Options struct {
	// Host labels emitted events.
	Host string
	// LogPath is the log the lines come from, quoted in notifications.
	LogPath string

	NewLoginIP  bool
	FailedLogin bool
	// KnownIPs never trigger a new-login event.
	KnownIPs []string
}

// Classifier matches auth log lines to event kinds.
type Classifier struct {
	opts  Options
	known map[string]bool
	now   func() time.Time
}

// New creates a Classifier with the given options.
func New(opts Options) *Classifier {
	known := make(map[string]bool, len(opts.KnownIPs))
	for _, ip := range opts.KnownIPs {
		known[ip] = true
	}
	return &Classifier{opts: opts, known: known, now: time.Now}
}

// Classify examines a single log line and returns the events it signals.
// Lines are classified independently; a line may yield both a new-login and
// a failed-login event. Lines that do not match return nil.
func (c *Classifier) Classify(line string) []*event.Event {
	if !strings.Contains(line, sshdMarker) {
		return nil
	}
	line = strings.TrimRight(line, " \t\r\n")
	ts := c.now()

	var events []*event.Event

	if c.opts.NewLoginIP && strings.Contains(line, acceptedPublicKeyMarker) {
		for _, ip := range ExtractIPv4(line) {
			if ip.IsPrivate() || c.known[ip.String()] {
				slog.Debug("login from private or known IP, not notifying", "ip", ip.String())
				continue
			}
			ev := event.New(c.opts.Host, ts, event.KindNewLogin, fmt.Sprintf("New login from %s", ip))
			ev.IP = ip.String()
			ev.Line = line
			ev.Source = c.opts.LogPath
			events = append(events, ev)
		}
	}

	if c.opts.FailedLogin && strings.Contains(line, connectionClosedMarker) {
		ev := event.New(c.opts.Host, ts, event.KindFailedLogin, "Failed login attempt")
		ev.IP = firstIPv4(line)
		ev.Line = line
		ev.Source = c.opts.LogPath
		events = append(events, ev)
	}

	return events
}

// ExtractIPv4 returns every whitespace-separated token of line that parses
// as a dotted-quad IPv4 address, in order of appearance.
func ExtractIPv4(line string) []netip.Addr {
	var addrs []netip.Addr
	for _, tok := range strings.Fields(line) {
		addr, err := netip.ParseAddr(tok)
		if err != nil || !addr.Is4() {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// firstIPv4 is informational only; failed-login detection does not depend on it.
func firstIPv4(line string) string {
	if addrs := ExtractIPv4(line); len(addrs) > 0 {
		return addrs[0].String()
	}
	return ""
}
