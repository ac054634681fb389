package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/indicator"
	"github.com/rbright/piano/internal/ipc"
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/player"
	"github.com/rbright/piano/internal/session"
	"github.com/rbright/piano/internal/settings"
)

const acquireProbeTimeout = 180 * time.Millisecond

// runOwner serves the session until shutdown or ctx cancellation. initial,
// when set, is the intent that caused this process to become the owner.
func (r Runner) runOwner(ctx context.Context, cfg config.Config, logger *slog.Logger, initial *ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	playerName := ""
	if len(cfg.Player.Command.Argv) > 0 {
		playerName = filepath.Base(cfg.Player.Command.Argv[0])
	}
	// A stale socket means the previous owner died, possibly leaving its
	// player running.
	rescue := func(context.Context) {
		if !cfg.Player.KillStale || playerName == "" {
			return
		}
		pids, err := player.KillByName(playerName)
		if err != nil {
			logger.Warn("kill stale player failed", "name", playerName, "error", err.Error())
		}
		if len(pids) > 0 {
			logger.Warn("killed stale player", "name", playerName, "pids", pids)
		}
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: acquireProbeTimeout, Rescue: rescue})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			if initial == nil {
				fmt.Fprintln(r.Stderr, "error: piano owner already running")
				return 1
			}
			resp, err := ipc.Call(ctx, socketPath, initial.Command, initial.Text, forwardTimeout)
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			return r.printResponse(resp)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	owner, err := newOwner(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := owner.session.Restore(); err != nil {
		logger.Warn("restore settings failed", "error", err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	serverErrCh := make(chan error, 1)
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := owner.bridge.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("now-playing bridge stopped", "error", err.Error())
		}
	}()
	go func() {
		defer wg.Done()
		owner.session.RunIdleTicker(runCtx, cfg.Session.IdleTick())
	}()
	go func() {
		defer wg.Done()
		serverErrCh <- ipc.Serve(runCtx, listener, owner.session)
	}()

	logger.Info("owner ready", "socket", socketPath, "status", owner.bridge.StatusPath())

	exitCode := 0
	if initial != nil {
		resp := owner.session.Handle(runCtx, *initial)
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		if !resp.OK {
			if resp.Error != "" {
				fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
			}
			owner.session.Shutdown(context.WithoutCancel(ctx))
			exitCode = 1
		}
	}

	var serverErr error
	select {
	case <-owner.session.Done():
	case <-ctx.Done():
		owner.session.Shutdown(context.WithoutCancel(ctx))
	case serverErr = <-serverErrCh:
		owner.session.Shutdown(context.WithoutCancel(ctx))
	}

	cancel()
	wg.Wait()
	owner.notifier.Wait()

	if serverErr == nil {
		select {
		case serverErr = <-serverErrCh:
		default:
		}
	}
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("owner stopped", "exit_code", exitCode)
	return exitCode
}

// components are the parts of one owner run.
type components struct {
	session  *session.Controller
	bridge   *nowplaying.Bridge
	notifier *indicator.Notifier
}

func newOwner(cfg config.Config, logger *slog.Logger) (*components, error) {
	vocabulary, err := config.BuildVocabulary(cfg)
	if err != nil {
		return nil, err
	}

	playerDir, err := config.PlayerDir(cfg)
	if err != nil {
		return nil, err
	}

	settingsPath, err := settings.DefaultPath()
	if err != nil {
		return nil, err
	}

	var env []string
	if cfg.Player.ConfigDir != "" {
		env = append(env, "XDG_CONFIG_HOME="+filepath.Dir(filepath.Clean(cfg.Player.ConfigDir)))
	}

	ctl := player.NewController(player.Options{
		Argv:        cfg.Player.Command.Argv,
		Env:         env,
		LockPath:    filepath.Join(filepath.Dir(settingsPath), "player.lock"),
		KillStale:   cfg.Player.KillStale,
		SettleDelay: cfg.Player.SettleDelay(),
		QuitGrace:   cfg.Player.QuitGrace(),
		StopTimeout: cfg.Player.StopTimeout(),
		Logger:      logger,
	})
	notifier := indicator.NewNotifier(cfg.Indicator, logger)

	sess := session.NewController(session.Options{
		Player:         ctl,
		Indicator:      notifier,
		Store:          settings.NewStore(settingsPath),
		Logger:         logger,
		Vocabulary:     vocabulary,
		MatchThreshold: cfg.Session.MatchThreshold,
		DefaultStation: cfg.Session.DefaultStation,
		IdleTicks:      cfg.Session.IdleTicks,
	})

	bridge := nowplaying.New(nowplaying.Options{
		Dir:      playerDir,
		Interval: cfg.Bridge.PollInterval(),
		Watch:    cfg.Bridge.Watch,
		Logger:   logger,
	}, sess)

	return &components{session: sess, bridge: bridge, notifier: notifier}, nil
}
