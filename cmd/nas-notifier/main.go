// nas-notifier watches the SSH auth log and ZFS pool health on a NAS and
// sends a push notification for unknown login IPs, failed logins, and pool
// health changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/daemon"
	"github.com/nas-notifier/nas-notifier/internal/event"
	"github.com/nas-notifier/nas-notifier/internal/format"
	"github.com/nas-notifier/nas-notifier/internal/monitor"
	"github.com/nas-notifier/nas-notifier/internal/reporter"
	"github.com/nas-notifier/nas-notifier/internal/store"
	"github.com/nas-notifier/nas-notifier/internal/watcher"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "query":
			runQuery(os.Args[2:])
			return
		case "digest":
			runDigest(os.Args[2:])
			return
		case "status":
			runStatus(os.Args[2:])
			return
		case "test-notify":
			runTestNotifyCmd(os.Args[2:])
			return
		case "version":
			fmt.Println("nas-notifier", version)
			return
		}
	}

	// Default: run daemon.
	runDaemon(os.Args[1:])
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("nas-notifier", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("nas-notifier", version)
		os.Exit(0)
	}

	cfg := mustLoad(*configPath)
	setupLogging(cfg.Log.Level)

	slog.Info("nas-notifier starting",
		"version", version,
		"host", cfg.Telegram.Hostname,
		"new_login_ip", cfg.Notifications.NewLoginIP,
		"failed_login", cfg.Notifications.FailedLogin,
		"pool_health", cfg.Notifications.PoolHealth,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Handle shutdown signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rep reporter.Reporter
	if cfg.AnyEnabled() {
		var err error
		rep, err = reporter.New(cfg)
		if err != nil {
			return fmt.Errorf("creating notification sink: %w", err)
		}
	} else {
		slog.Warn("all notifications are disabled, the daemon will only idle")
	}

	var history daemon.Recorder
	if cfg.History.Path != "" {
		db, err := store.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer db.Close()
		slog.Info("history database opened", "path", cfg.History.Path)

		if cfg.History.Retention.Duration > 0 {
			purged, err := db.Purge(cfg.History.Retention.Duration)
			if err != nil {
				slog.Warn("failed to purge old events", "error", err)
			} else if purged > 0 {
				slog.Info("purged old events", "count", purged, "retention", cfg.History.Retention.Duration)
			}
		}
		history = db
	}

	d := daemon.New(
		daemon.OptionsFromConfig(cfg),
		watcher.NewFileTail(cfg.AuthLog),
		monitor.NewZpoolSource(cfg.Zpool.Command),
		rep,
		history,
	)

	// Notify systemd we are ready (sd_notify).
	sdNotify("READY=1")

	// The loop is sequential, so the watchdog is pinged once per poll.
	// WatchdogSec must exceed the poll interval plus the slowest send.
	if wdInterval := watchdogInterval(); wdInterval > 0 {
		slog.Info("systemd watchdog enabled", "interval", wdInterval)
		if wdInterval <= cfg.PollInterval() {
			slog.Warn("watchdog interval is not longer than the poll interval",
				"watchdog", wdInterval, "poll", cfg.PollInterval())
		}
		d.OnPoll = func() { sdNotify("WATCHDOG=1") }
	}

	err := d.Run(ctx)
	if ctx.Err() != nil {
		slog.Info("received signal, shutting down")
		sdNotify("STOPPING=1")
	}
	return err
}

// --- digest subcommand ---

func runDigest(args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	send := fs.Bool("send", false, "send digest via the configured sink (otherwise print to stdout)")
	last := fs.String("last", "7d", "time window for digest")
	fs.Parse(args)

	cfg := mustLoad(*configPath)
	setupLogging("error")

	db := mustOpenHistory(cfg)
	defer db.Close()

	duration, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value: %v\n", err)
		os.Exit(1)
	}

	until := time.Now()
	since := until.Add(-duration)

	events, err := db.Query(store.QueryFilter{Since: since, Until: until})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	digest := reporter.BuildDigest(cfg.Telegram.Hostname, events, since, until)
	body := reporter.FormatDigest(digest)

	if !*send {
		fmt.Print(body)
		return
	}

	rep, err := reporter.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	title := reporter.FormatDigestTitle(since, until)
	ev := event.New(cfg.Telegram.Hostname, until, event.KindDigest, title+"\n\n```\n"+body+"```")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rep.Report(ctx, ev); err != nil {
		fmt.Fprintf(os.Stderr, "error sending digest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Digest sent successfully.")
}

// --- status subcommand ---

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	fs.Parse(args)

	cfg := mustLoad(*configPath)
	setupLogging("error")

	fmt.Printf("Host:         %s\n", cfg.Telegram.Hostname)
	fmt.Printf("Poll:         every %s\n", cfg.PollInterval())
	fmt.Printf("Toggles:      new-login-ip=%t failed-login=%t pool-health=%t\n",
		cfg.Notifications.NewLoginIP, cfg.Notifications.FailedLogin, cfg.Notifications.PoolHealth)
	fmt.Printf("Known IPs:    %d\n", len(cfg.Notifications.KnownIPs))

	if info, err := os.Stat(cfg.AuthLog); err == nil {
		fmt.Printf("Auth log:     %s (%s)\n", cfg.AuthLog, format.Bytes(info.Size()))
	} else {
		fmt.Printf("Auth log:     %s (%v)\n", cfg.AuthLog, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pools, err := monitor.NewZpoolSource(cfg.Zpool.Command).Pools(ctx)
	if err != nil {
		fmt.Printf("Pools:        unavailable (%v)\n", err)
	} else if len(pools) == 0 {
		fmt.Println("Pools:        none")
	}
	for _, p := range pools {
		fmt.Printf("Pool:         %s %s\n", p.Name, p.Health)
	}

	if cfg.History.Path == "" {
		fmt.Println("History:      disabled")
		return
	}

	db, err := store.Open(cfg.History.Path)
	if err != nil {
		fmt.Printf("History:      unavailable (%v)\n", err)
		return
	}
	defer db.Close()

	writeHistoryStatus(os.Stdout, db, cfg.History.Path)
}

// historyStats is the part of store.DB that status reads.
type historyStats interface {
	Query(f store.QueryFilter) ([]*event.Event, error)
	Count() (int64, error)
}

func writeHistoryStatus(w io.Writer, db historyStats, path string) {
	lastEvents, err := db.Query(store.QueryFilter{Limit: 1})
	switch {
	case err != nil:
		fmt.Fprintf(w, "Last event:   unavailable (%v)\n", err)
	case len(lastEvents) > 0:
		ev := lastEvents[0]
		ago := time.Since(ev.Timestamp).Truncate(time.Second)
		fmt.Fprintf(w, "Last event:   [%s] %s, %s ago\n", ev.Kind.Label(), ev.Summary, formatDuration(ago))
	default:
		fmt.Fprintln(w, "Last event:   none")
	}

	if eventCount, err := db.Count(); err != nil {
		fmt.Fprintf(w, "DB events:    unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(w, "DB events:    %d total\n", eventCount)
	}
	fmt.Fprintf(w, "DB path:      %s\n", path)
}

// --- query subcommand ---

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	last := fs.String("last", "24h", "time window (e.g. 24h, 7d, 30d)")
	kind := fs.String("kind", "", "filter by kind (new_login, failed_login, pool_health)")
	limit := fs.Int("limit", 50, "max events to show")
	fs.Parse(args)

	cfg := mustLoad(*configPath)
	setupLogging("error") // quiet for CLI output

	db := mustOpenHistory(cfg)
	defer db.Close()

	since, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
		os.Exit(1)
	}

	events, err := db.Query(store.QueryFilter{
		Since: time.Now().Add(-since),
		Kind:  strings.ToLower(*kind),
		Limit: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return
	}

	printEvents(events)
}

func printEvents(events []*event.Event) {
	for _, ev := range events {
		ts := ev.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Printf("%s  %-14s %s\n", ts, ev.Kind.Label(), ev.Summary)
		if ev.Line != "" {
			fmt.Printf("             %s\n", ev.Line)
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d event(s)\n", len(events))
}

// parseDuration extends time.ParseDuration with support for "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", h, m)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, h)
}

// --- test-notify subcommand ---

func runTestNotifyCmd(args []string) {
	fs := flag.NewFlagSet("test-notify", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	fs.Parse(args)

	cfg := mustLoad(*configPath)
	setupLogging(cfg.Log.Level)

	rep, err := reporter.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ev := (&reporter.TestEvent{Host: cfg.Telegram.Hostname}).ToEvent()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := rep.Report(ctx, ev); err != nil {
		fmt.Fprintf(os.Stderr, "error sending test notification: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test notification sent successfully.")
}

// --- sd_notify support ---

// sdNotify sends a notification to systemd via the NOTIFY_SOCKET.
// This is a minimal implementation that doesn't require a C dependency.
func sdNotify(state string) {
	socketAddr := os.Getenv("NOTIFY_SOCKET")
	if socketAddr == "" {
		return
	}

	conn, err := net.Dial("unixgram", socketAddr)
	if err != nil {
		slog.Debug("sd_notify: failed to connect", "error", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		slog.Debug("sd_notify: failed to send", "error", err)
	}
}

// watchdogInterval reads WATCHDOG_USEC from the environment and returns the
// watchdog interval as a time.Duration. Returns 0 if not set.
func watchdogInterval() time.Duration {
	usecStr := os.Getenv("WATCHDOG_USEC")
	if usecStr == "" {
		return 0
	}
	var usec int64
	if _, err := fmt.Sscanf(usecStr, "%d", &usec); err != nil {
		return 0
	}
	return time.Duration(usec) * time.Microsecond
}

// --- utilities ---

func mustLoad(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustOpenHistory(cfg *config.Config) *store.DB {
	if cfg.History.Path == "" {
		fmt.Fprintln(os.Stderr, "error: history is disabled (history.path is empty)")
		os.Exit(1)
	}
	db, err := store.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
