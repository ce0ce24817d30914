// Package daemon runs the poll loop: tail the auth log, diff pool health,
// and report what changed. Iterations are strictly sequential and every
// error aborts the loop.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/classifier"
	"github.com/nas-notifier/nas-notifier/internal/config"
	"github.com/nas-notifier/nas-notifier/internal/event"
	"github.com/nas-notifier/nas-notifier/internal/monitor"
	"github.com/nas-notifier/nas-notifier/internal/reporter"
	"github.com/nas-notifier/nas-notifier/internal/watcher"
)

// TailReader returns log text appended since a cursor.
type TailReader interface {
	ReadNew(cur watcher.Cursor) (string, watcher.Cursor, error)
}

// PoolSource lists storage pools and their current health.
type PoolSource interface {
	Pools(ctx context.Context) ([]monitor.PoolStatus, error)
}

// Recorder keeps a history of reported events.
type Recorder interface {
	Insert(ev *event.Event) error
	MarkNotified(id string) error
}

// Options configures a Daemon.
type Options struct {
	Host     string
	LogPath  string
	Interval time.Duration

	NewLoginIP  bool
	FailedLogin bool
	PoolHealth  bool
	KnownIPs    []string
}

// OptionsFromConfig maps the loaded configuration onto daemon options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Host:        cfg.Telegram.Hostname,
		LogPath:     cfg.AuthLog,
		Interval:    cfg.PollInterval(),
		NewLoginIP:  cfg.Notifications.NewLoginIP,
		FailedLogin: cfg.Notifications.FailedLogin,
		PoolHealth:  cfg.Notifications.PoolHealth,
		KnownIPs:    cfg.Notifications.KnownIPs,
	}
}

// Daemon owns all state that lives across polls. It is not safe for
// concurrent use; Run is the only intended caller of Poll.
type Daemon struct {
	opts       Options
	tail       TailReader
	pools      PoolSource
	rep        reporter.Reporter
	history    Recorder
	classifier *classifier.Classifier

	cursor watcher.Cursor
	health *monitor.HealthMap

	// OnPoll, if set, is called after every successful poll.
	OnPoll func()
}

// New creates a Daemon. history may be nil.
func New(opts Options, tail TailReader, pools PoolSource, rep reporter.Reporter, history Recorder) *Daemon {
	return &Daemon{
		opts:    opts,
		tail:    tail,
		pools:   pools,
		rep:     rep,
		history: history,
		classifier: classifier.New(classifier.Options{
			Host:        opts.Host,
			LogPath:     opts.LogPath,
			NewLoginIP:  opts.NewLoginIP,
			FailedLogin: opts.FailedLogin,
			KnownIPs:    opts.KnownIPs,
		}),
		health: monitor.NewHealthMap(),
	}
}

// Run polls until ctx is cancelled or a poll fails. Cancellation is a clean
// shutdown and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("startup complete, beginning polling loop", "interval", d.opts.Interval)

	for {
		if err := d.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if d.OnPoll != nil {
			d.OnPoll()
		}

		slog.Debug("sleeping", "interval", d.opts.Interval)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.opts.Interval):
		}
	}
}

// Poll runs a single iteration: login detection, then pool health.
func (d *Daemon) Poll(ctx context.Context) error {
	slog.Debug("new polling loop")

	if d.opts.NewLoginIP || d.opts.FailedLogin {
		if err := d.pollAuthLog(ctx); err != nil {
			return err
		}
	}

	if d.opts.PoolHealth {
		if err := d.pollPools(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (d *Daemon) pollAuthLog(ctx context.Context) error {
	slog.Debug("getting new lines", "path", d.opts.LogPath, "offset", d.cursor.Offset)

	text, next, err := d.tail.ReadNew(d.cursor)
	if err != nil {
		return fmt.Errorf("reading auth log: %w", err)
	}
	if next.Offset < d.cursor.Offset {
		slog.Info("auth log shrank, reading from start", "path", d.opts.LogPath)
	}
	d.cursor = next
	slog.Debug("read auth log", "bytes", len(text), "offset", d.cursor.Offset)

	for _, line := range watcher.SplitLines(text) {
		for _, ev := range d.classifier.Classify(line) {
			slog.Info("login event detected", "kind", ev.Kind, "ip", ev.IP)
			if err := d.notify(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Daemon) pollPools(ctx context.Context) error {
	slog.Debug("getting pool statuses")

	observed, err := d.pools.Pools(ctx)
	if err != nil {
		return fmt.Errorf("querying pool health: %w", err)
	}
	slog.Debug("got pool statuses", "count", len(observed))

	for _, pool := range observed {
		if _, known := d.health.Get(pool.Name); !known {
			slog.Info("found new pool", "pool", pool.Name, "health", pool.Health)
		}
	}

	for _, tr := range d.health.Reconcile(observed) {
		slog.Info("pool health changed", "pool", tr.Name, "from", tr.Previous, "to", tr.Current)

		ev := event.New(d.opts.Host, time.Now(), event.KindPoolHealth,
			fmt.Sprintf("Pool %s is %s", tr.Name, tr.Current))
		ev.Pool = tr.Name
		ev.Health = tr.Current.String()
		if err := d.notify(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// notify reports an event, recording it in the history when one is
// configured. History failures are logged; send failures are returned.
func (d *Daemon) notify(ctx context.Context, ev *event.Event) error {
	if d.history != nil {
		if err := d.history.Insert(ev); err != nil {
			slog.Error("failed to store event", "error", err)
		}
	}

	if err := d.rep.Report(ctx, ev); err != nil {
		return fmt.Errorf("sending %s notification: %w", ev.Kind, err)
	}

	if d.history != nil {
		if err := d.history.MarkNotified(ev.ID); err != nil {
			slog.Error("failed to mark event notified", "error", err)
		}
	}
	return nil
}

// Cursor returns the current auth log cursor.
func (d *Daemon) Cursor() watcher.Cursor {
	return d.cursor
}

// Health returns the pool health map.
func (d *Daemon) Health() *monitor.HealthMap {
	return d.health
}
