package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/piano/internal/fsm"
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/player"
	"github.com/rbright/piano/internal/station"
	"github.com/rbright/piano/internal/vocab"
)

// Reply is the outcome of one intent. Message is meant to be spoken, and is
// set even when Err is.
type Reply struct {
	Message string
	Station *station.Station
	Err     error
}

// Play starts or resumes playback, on the station named in utterance when
// one matches.
func (c *Controller) Play(ctx context.Context, utterance string) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	cleaned := vocab.Strip(utterance, c.vocabulary)

	if c.alive() {
		if cleaned == "" {
			return c.resumeLocked(ctx)
		}
		return c.switchLocked(ctx, cleaned)
	}

	target, matched := c.choose(cleaned)
	// With no catalog yet the name can't be matched; hold it until the
	// bridge delivers the station list.
	deferred := cleaned != "" && len(c.Stations()) == 0
	if err := c.player.Start(ctx); err != nil {
		return c.launchFailed(ctx, err)
	}
	if err := c.player.Send(player.SelectStation(target.Index)); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventPlay); err != nil {
		return Reply{Message: msgCannotDoThat, Err: err}
	}

	c.setPlaying(target)
	c.indicator.CueResume(ctx)
	c.log(slog.LevelInfo, "playback started", "station", target.Name, "index", target.Index, "matched", matched, "deferred", deferred)
	if deferred {
		c.mu.Lock()
		c.pending = cleaned
		c.mu.Unlock()
		return Reply{Message: lookingForMessage(cleaned), Station: &target}
	}
	return Reply{Message: playingMessage(target, cleaned, matched), Station: &target}
}

// ChangeStation switches a running player to the station named in
// utterance. With no player running it behaves like Play.
func (c *Controller) ChangeStation(ctx context.Context, utterance string) Reply {
	if !c.alive() {
		return c.Play(ctx, utterance)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.switchLocked(ctx, vocab.Strip(utterance, c.vocabulary))
}

// Pause pauses playback.
func (c *Controller) Pause(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.alive() {
		return notPlaying()
	}
	if err := c.player.Send(player.CmdPause); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventPause); err != nil {
		return Reply{Message: msgCannotDoThat, Err: err}
	}
	c.resetIdle()
	c.indicator.ShowPaused(ctx)
	c.indicator.CuePause(ctx)
	return Reply{Message: msgPaused}
}

// Resume resumes playback.
func (c *Controller) Resume(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.alive() {
		return notPlaying()
	}
	return c.resumeLocked(ctx)
}

// Next skips the current song.
func (c *Controller) Next(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.alive() {
		return notPlaying()
	}
	if err := c.player.Send(player.CmdNext); err != nil {
		return c.sendFailed(ctx, err)
	}
	return Reply{Message: msgSkipping}
}

// ListStations describes the known catalog.
func (c *Controller) ListStations() Reply {
	return Reply{Message: stationsMessage(c.Stations())}
}

// Stop pauses a playing session and keeps the player alive. Stopping an idle
// session does nothing.
func (c *Controller) Stop(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	state := c.State()
	if !c.alive() || (state != fsm.StatePlaying && state != fsm.StateAutopause) {
		return Reply{}
	}
	if err := c.player.Send(player.CmdPause); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventStop); err != nil {
		return Reply{Err: err}
	}
	c.resetIdle()
	c.indicator.ShowPaused(ctx)
	return Reply{}
}

// Shutdown terminates the player and ends the session.
func (c *Controller) Shutdown(ctx context.Context) Reply {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var err error
	if c.player != nil {
		err = c.player.Stop(ctx)
	}
	_, _ = c.transition(fsm.EventShutdown)
	c.resetIdle()

	c.mu.Lock()
	c.current = nil
	c.pending = ""
	c.song = nowplaying.Song{}
	c.mu.Unlock()

	c.indicator.Hide(ctx)
	c.persist()
	c.shutdownOnce.Do(func() { close(c.shutdown) })

	if err != nil {
		return Reply{Message: msgGoodbye, Err: fmt.Errorf("stop player: %w", err)}
	}
	return Reply{Message: msgGoodbye}
}

// resumeLocked sends resume and enters playing. Caller holds opMu.
func (c *Controller) resumeLocked(ctx context.Context) Reply {
	if err := c.player.Send(player.CmdResume); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventResume); err != nil {
		return Reply{Message: msgCannotDoThat, Err: err}
	}
	c.resetIdle()
	c.indicator.CueResume(ctx)

	c.mu.RLock()
	current := copyStation(c.current)
	c.mu.RUnlock()
	return Reply{Message: msgResuming, Station: current}
}

// switchLocked pauses, selects the matched station, and resumes. Caller
// holds opMu and has checked the player is alive.
func (c *Controller) switchLocked(ctx context.Context, cleaned string) Reply {
	target, matched := c.choose(cleaned)
	return c.switchToLocked(ctx, target, cleaned, matched)
}

// switchToLocked moves a live player to target. Caller holds opMu.
func (c *Controller) switchToLocked(ctx context.Context, target station.Station, cleaned string, matched bool) Reply {
	if c.State() == fsm.StatePlaying {
		if err := c.player.Send(player.CmdPause); err != nil {
			return c.sendFailed(ctx, err)
		}
		if _, err := c.transition(fsm.EventPause); err != nil {
			return Reply{Message: msgCannotDoThat, Err: err}
		}
	}

	if err := c.player.Send(player.SwitchStation(target.Index)); err != nil {
		return c.sendFailed(ctx, err)
	}
	c.setPlaying(target)

	if err := c.player.Send(player.CmdResume); err != nil {
		return c.sendFailed(ctx, err)
	}
	if _, err := c.transition(fsm.EventPlay); err != nil {
		return Reply{Message: msgCannotDoThat, Err: err}
	}
	c.resetIdle()
	c.indicator.CueResume(ctx)
	c.log(slog.LevelInfo, "station changed", "station", target.Name, "index", target.Index, "matched", matched)
	return Reply{Message: playingMessage(target, cleaned, matched), Station: &target}
}

// choose resolves a station: the best match, else last played, else the
// configured default, else the first known station.
func (c *Controller) choose(cleaned string) (station.Station, bool) {
	catalog := c.Stations()
	if strings.TrimSpace(cleaned) != "" {
		if st, ok := station.Match(cleaned, catalog, c.threshold); ok {
			return st, true
		}
	}

	c.mu.RLock()
	last := copyStation(c.lastPlayed)
	c.mu.RUnlock()

	if last != nil {
		if len(catalog) == 0 {
			return *last, false
		}
		if st, ok := station.Find(catalog, last.Index); ok {
			return st, false
		}
	}
	if st, ok := station.Find(catalog, c.fallback); ok {
		return st, false
	}
	if len(catalog) > 0 {
		return catalog[0], false
	}
	return station.Station{Index: c.fallback}, false
}

// resolvePending switches to the station a play intent asked for before the
// catalog was known. A name that still doesn't match is reported and dropped.
func (c *Controller) resolvePending(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	cleaned := c.pending
	c.pending = ""
	current := copyStation(c.current)
	c.mu.Unlock()

	if cleaned == "" || !c.alive() {
		return
	}
	target, ok := station.Match(cleaned, c.Stations(), c.threshold)
	if !ok {
		msg := notFoundMessage(cleaned)
		c.indicator.ShowError(ctx, msg)
		c.log(slog.LevelInfo, "requested station not in catalog", "query", cleaned)
		return
	}
	if current != nil && current.Index == target.Index {
		return
	}
	reply := c.switchToLocked(ctx, target, cleaned, true)
	if reply.Err != nil {
		c.log(slog.LevelWarn, "deferred station switch failed", "station", target.Name, "error", reply.Err.Error())
	}
}

// setPlaying records target as current and last played.
func (c *Controller) setPlaying(target station.Station) {
	c.mu.Lock()
	current := target
	last := target
	c.current = &current
	c.lastPlayed = &last
	c.song = nowplaying.Song{}
	c.mu.Unlock()
	c.persist()
}

func (c *Controller) alive() bool {
	return c.player != nil && c.player.IsAlive()
}

func (c *Controller) resetIdle() {
	c.mu.Lock()
	c.idleTicks = 0
	c.mu.Unlock()
}

func (c *Controller) launchFailed(ctx context.Context, err error) Reply {
	msg := launchMessage(err)
	c.indicator.ShowError(ctx, msg)
	c.log(slog.LevelError, "player launch failed", "error", err.Error())
	return Reply{Message: msg, Err: err}
}

func (c *Controller) sendFailed(ctx context.Context, err error) Reply {
	if errors.Is(err, player.ErrNotRunning) {
		return notPlaying()
	}
	c.indicator.ShowError(ctx, msgPlayerError)
	c.log(slog.LevelError, "player command failed", "error", err.Error())
	return Reply{Message: msgPlayerError, Err: err}
}

func notPlaying() Reply {
	return Reply{Message: msgNotPlaying, Err: player.ErrNotRunning}
}
