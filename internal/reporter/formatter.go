package reporter

import (
	"fmt"
	"strings"

	"github.com/nas-notifier/nas-notifier/internal/event"
)

// kindEmoji maps event kinds to display emojis for ntfy titles.
var kindEmoji = map[event.Kind]string{
	event.KindNewLogin:    "\U0001f511", // key
	event.KindFailedLogin: "\U0001f6ab", // prohibited
	event.KindPoolHealth:  "\U0001f4be", // floppy disk
}

// kindTags maps event kinds to ntfy tag names.
var kindTags = map[event.Kind]string{
	event.KindNewLogin:    "key,login",
	event.KindFailedLogin: "no_entry,login",
	event.KindPoolHealth:  "floppy_disk,zfs",
}

// FormatMessage builds the Markdown notification text for an event.
func FormatMessage(ev *event.Event) string {
	switch ev.Kind {
	case event.KindNewLogin:
		return fmt.Sprintf("There was a successful login on `%s` from an unknown IP address. Here's the relevant line from `%s`:\n\n`%s`",
			inCode(ev.Host), inCode(ev.Source), inCode(ev.Line))
	case event.KindFailedLogin:
		return fmt.Sprintf("There was a failed login attempt on `%s`. Here's the relevant line from `%s`:\n\n`%s`",
			inCode(ev.Host), inCode(ev.Source), inCode(ev.Line))
	case event.KindPoolHealth:
		return fmt.Sprintf("Zpool `%s` entered the `%s` state.", inCode(ev.Pool), inCode(ev.Health))
	default:
		return ev.Summary
	}
}

// inCode prepares text for a Markdown code span. Telegram's legacy Markdown
// has no escape inside code, so a stray backtick would make the API reject
// the whole message.
func inCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// FormatTitle builds the ntfy notification title for an event.
func FormatTitle(ev *event.Event) string {
	emoji := kindEmoji[ev.Kind]
	if emoji == "" {
		emoji = "❗" // exclamation mark
	}
	return fmt.Sprintf("%s [%s] %s", emoji, ev.Host, ev.Summary)
}

// TagsForKind returns the ntfy tags string for an event kind.
func TagsForKind(kind event.Kind) string {
	if tags, ok := kindTags[kind]; ok {
		return tags
	}
	return "warning"
}
