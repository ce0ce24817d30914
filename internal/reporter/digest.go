package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/event"
)

// DigestSummary holds aggregated event counts for a digest period.
type DigestSummary struct {
	Host  string
	Since time.Time
	Until time.Time

	NewLogins      int
	LoginBreakdown map[string]int // ip -> count
	FailedLogins   int
	FailedSources  map[string]int // ip -> count
	PoolChanges    int
	PoolBreakdown  []string // "tank: DEGRADED", in time order
}

// BuildDigest aggregates a list of events into a DigestSummary.
func BuildDigest(host string, events []*event.Event, since, until time.Time) *DigestSummary {
	d := &DigestSummary{
		Host:           host,
		Since:          since,
		Until:          until,
		LoginBreakdown: make(map[string]int),
		FailedSources:  make(map[string]int),
	}

	for _, ev := range events {
		switch ev.Kind {
		case event.KindNewLogin:
			d.NewLogins++
			d.LoginBreakdown[orUnknown(ev.IP)]++
		case event.KindFailedLogin:
			d.FailedLogins++
			d.FailedSources[orUnknown(ev.IP)]++
		case event.KindPoolHealth:
			d.PoolChanges++
			d.PoolBreakdown = append(d.PoolBreakdown, fmt.Sprintf("%s: %s", ev.Pool, ev.Health))
		}
	}

	return d
}

// FormatDigest formats a DigestSummary as human-readable text suitable for
// a notification or stdout output.
func FormatDigest(d *DigestSummary) string {
	var b strings.Builder

	dateRange := fmt.Sprintf("%s - %s",
		d.Since.Local().Format("Jan 02"),
		d.Until.Local().Format("Jan 02"))

	fmt.Fprintf(&b, "=== %s ===\n", d.Host)
	fmt.Fprintf(&b, "Period: %s\n\n", dateRange)

	fmt.Fprintf(&b, "New login IPs:  %d", d.NewLogins)
	if d.NewLogins > 0 {
		fmt.Fprintf(&b, " (%s)", formatBreakdown(d.LoginBreakdown))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Failed logins:  %d", d.FailedLogins)
	if d.FailedLogins > 0 {
		fmt.Fprintf(&b, " (%s)", formatBreakdown(d.FailedSources))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Pool changes:   %d", d.PoolChanges)
	if len(d.PoolBreakdown) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(d.PoolBreakdown, ", "))
	}
	b.WriteString("\n")

	return b.String()
}

// FormatDigestTitle generates the title for a digest notification.
func FormatDigestTitle(since, until time.Time) string {
	return fmt.Sprintf("\U0001f4ca nas-notifier digest (%s-%s)",
		since.Local().Format("Jan 02"),
		until.Local().Format("Jan 02"))
}

// formatBreakdown turns a map[string]int into "foo ×2, bar ×1" sorted by
// count desc, then name.
func formatBreakdown(m map[string]int) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s ×%d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
