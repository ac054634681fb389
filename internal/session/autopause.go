package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbright/piano/internal/fsm"
	"github.com/rbright/piano/internal/player"
)

// ListenerStarted pauses playback while the assistant listens. Repeated
// calls while already autopaused only restart the idle count.
func (c *Controller) ListenerStarted(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	state := c.State()
	if state == fsm.StateAutopause {
		c.resetIdle()
		return Reply{}
	}
	if state != fsm.StatePlaying {
		return Reply{}
	}

	if !c.alive() {
		c.markExited()
		return Reply{}
	}
	if err := c.player.Send(player.CmdPause); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventListen); err != nil {
		return Reply{Err: err}
	}
	c.resetIdle()
	return Reply{}
}

// ListenerActivity keeps an autopause alive for another idle window.
func (c *Controller) ListenerActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == fsm.StateAutopause {
		c.idleTicks = 0
	}
}

// IdleTick advances the autopause idle counter and resumes playback once it
// reaches the configured limit. It reports whether playback resumed.
func (c *Controller) IdleTick(ctx context.Context) bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state != fsm.StateAutopause {
		c.mu.Unlock()
		return false
	}
	c.idleTicks++
	ticks := c.idleTicks
	c.mu.Unlock()

	if ticks < c.idleLimit {
		return false
	}

	if !c.alive() {
		c.markExited()
		return false
	}
	if err := c.player.Send(player.CmdResume); err != nil {
		if errors.Is(err, player.ErrNotRunning) {
			c.markExited()
			return false
		}
		c.log(slog.LevelWarn, "autopause resume failed", "error", err.Error())
		return false
	}
	if _, err := c.transition(fsm.EventIdleTimeout); err != nil {
		return false
	}
	c.resetIdle()
	c.indicator.CueResume(ctx)
	c.log(slog.LevelDebug, "autopause resumed", "ticks", ticks)
	return true
}

// RunIdleTicker calls IdleTick every period until ctx is done.
func (c *Controller) RunIdleTicker(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.IdleTick(ctx)
		}
	}
}

// markExited records that the player went away underneath the session.
func (c *Controller) markExited() {
	if _, err := c.transition(fsm.EventExited); err == nil {
		c.resetIdle()
		c.log(slog.LevelInfo, "player exited")
	}
}
