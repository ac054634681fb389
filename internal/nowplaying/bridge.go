package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultInterval = time.Second

// Consumer receives every freshly loaded status.
type Consumer interface {
	ApplySnapshot(ctx context.Context, status Status)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, status Status)

func (f ConsumerFunc) ApplySnapshot(ctx context.Context, status Status) {
	f(ctx, status)
}

// Options configures a Bridge.
type Options struct {
	Dir      string
	Interval time.Duration
	Watch    bool
	Logger   *slog.Logger
}

// Bridge polls the ready-marker and forwards parsed status files.
type Bridge struct {
	dir      string
	interval time.Duration
	watch    bool
	consumer Consumer
	logger   *slog.Logger
}

// New builds a bridge over opts.Dir.
func New(opts Options, consumer Consumer) *Bridge {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Bridge{
		dir:      opts.Dir,
		interval: interval,
		watch:    opts.Watch,
		consumer: consumer,
		logger:   opts.Logger,
	}
}

// StatusPath is the status file location.
func (b *Bridge) StatusPath() string { return filepath.Join(b.dir, StatusFile) }

// MarkerPath is the ready-marker location.
func (b *Bridge) MarkerPath() string { return filepath.Join(b.dir, MarkerFile) }

// Run polls immediately, then on every tick and marker wake-up, until ctx is
// cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if b.watch {
		watcher, err := b.newWatcher()
		if err != nil {
			b.log(slog.LevelWarn, "marker watch unavailable; polling only", "dir", b.dir, "error", err.Error())
		} else {
			defer func() { _ = watcher.Close() }()
			events = watcher.Events
			errs = watcher.Errors
		}
	}

	b.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.poll(ctx)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(event.Name) == MarkerFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				b.poll(ctx)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.log(slog.LevelWarn, "marker watch error", "error", err.Error())
		}
	}
}

// Poll runs one cycle. It reports whether a status was delivered.
func (b *Bridge) Poll(ctx context.Context) (bool, error) {
	if _, err := os.Stat(b.MarkerPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat ready marker: %w", err)
	}

	data, err := os.ReadFile(b.StatusPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read status: %w", err)
	}

	status, err := ParseStatus(data)
	if errors.Is(err, ErrNoInfo) {
		return false, nil
	}
	if err != nil {
		b.consume()
		return false, fmt.Errorf("parse status: %w", err)
	}

	if b.consumer != nil {
		b.consumer.ApplySnapshot(ctx, status)
	}
	b.consume()
	return true, nil
}

func (b *Bridge) poll(ctx context.Context) {
	delivered, err := b.Poll(ctx)
	if err != nil {
		b.log(slog.LevelWarn, "now-playing poll failed", "error", err.Error())
		return
	}
	if delivered {
		b.log(slog.LevelDebug, "now-playing status loaded", "path", b.StatusPath())
	}
}

// consume deletes the marker. A failed delete only causes a re-read.
func (b *Bridge) consume() {
	if err := os.Remove(b.MarkerPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		b.log(slog.LevelWarn, "remove ready marker failed", "path", b.MarkerPath(), "error", err.Error())
	}
}

func (b *Bridge) newWatcher() (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure status dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(b.dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (b *Bridge) log(level slog.Level, msg string, args ...any) {
	if b.logger == nil {
		return
	}
	b.logger.Log(context.Background(), level, msg, args...)
}
