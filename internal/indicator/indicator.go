// Package indicator shows playback notifications and plays audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/hypr"
)

const (
	nowPlayingTimeoutMS = 4000
	pausedTimeoutMS     = 2000
	dispatchTimeout     = 400 * time.Millisecond

	colorNowPlaying = "rgb(a6e3a1)"
	colorPaused     = "rgb(f9e2af)"
	colorError      = "rgb(f38ba8)"
)

// Notifier routes indicator output to Hyprland or desktop DBus based on the
// configured backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	emit     func(context.Context, cueKind) error

	mu                    sync.Mutex
	lastSong              string
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// NewNotifier creates an indicator from config.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		emit:     emitCue,
	}
}

// ShowNowPlaying announces a song. Repeats of the same song are dropped.
func (n *Notifier) ShowNowPlaying(ctx context.Context, song string) {
	song = strings.TrimSpace(song)
	if !n.cfg.Enable || song == "" {
		return
	}

	n.mu.Lock()
	repeat := song == n.lastSong
	n.lastSong = song
	n.mu.Unlock()
	if repeat {
		return
	}

	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconInfo, nowPlayingTimeoutMS, colorNowPlaying, n.messages.nowPlaying+song)
	})
}

// ShowPaused signals that playback is paused.
func (n *Notifier) ShowPaused(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.forgetSong()
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconHint, pausedTimeoutMS, colorPaused, n.messages.paused)
	})
}

// ShowError displays an error message and plays the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconError, timeout, colorError, text)
	})
}

// CuePause emits the pause cue.
func (n *Notifier) CuePause(context.Context) {
	n.playCue(cuePause)
}

// CueResume emits the resume cue.
func (n *Notifier) CueResume(context.Context) {
	n.playCue(cueResume)
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	n.forgetSong()
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues have finished.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

func (n *Notifier) forgetSong() {
	n.mu.Lock()
	n.lastSong = ""
	n.mu.Unlock()
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktop() {
		return n.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop replaces the previous desktop notification, if any.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "piano-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes one indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue plays one cue in the background. Cues never overlap.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := n.emit(ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
