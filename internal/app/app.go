// Package app wires parsed commands to the owner daemon and its clients.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/piano/internal/cli"
	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/doctor"
	"github.com/rbright/piano/internal/ipc"
	"github.com/rbright/piano/internal/logging"
	"github.com/rbright/piano/internal/version"
)

// Runner executes one piano invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args and returns the process exit code: 0 success, 1 runtime
// failure, 2 usage error.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("piano"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("piano"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Debug.LogLevel, string(parsed.Command))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if cfgLoaded.Exists {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandConfigure:
		return r.commandConfigure(ctx, cfgLoaded.Config, logger)
	case cli.CommandDaemon:
		return r.runOwner(ctx, cfgLoaded.Config, logger, nil)
	case cli.CommandStatus:
		return r.commandStatus(ctx, parsed.JSON)
	case cli.CommandStations:
		return r.commandStations(ctx, parsed.JSON)
	case cli.CommandPlay:
		return r.commandStartable(ctx, cfgLoaded.Config, logger, ipc.CommandPlay, parsed.Text)
	case cli.CommandStation:
		return r.commandStartable(ctx, cfgLoaded.Config, logger, ipc.CommandStation, parsed.Text)
	case cli.CommandPause:
		return r.forwardOrNotPlaying(ctx, ipc.CommandPause)
	case cli.CommandResume:
		return r.forwardOrNotPlaying(ctx, ipc.CommandResume)
	case cli.CommandNext:
		return r.forwardOrNotPlaying(ctx, ipc.CommandNext)
	case cli.CommandStop:
		return r.forwardOrIgnore(ctx, ipc.CommandStop)
	case cli.CommandListen:
		return r.forwardOrIgnore(ctx, ipc.CommandListen)
	case cli.CommandActivity:
		return r.forwardOrIgnore(ctx, ipc.CommandActivity)
	case cli.CommandShutdown:
		return r.forwardOrIgnore(ctx, ipc.CommandShutdown)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}
