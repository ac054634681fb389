// Package main provides the piano-event hook the player runs for each event.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rbright/piano/internal/eventhook"
	"github.com/rbright/piano/internal/logging"
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stderr))
}

// run handles one event. Failures are reported but the player never blocks
// on the hook, so the exit code is informational.
func run(args []string, stdin io.Reader, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: piano-event <event>")
		return 2
	}
	if args[0] == "--version" {
		fmt.Fprintln(stderr, version.String())
		return 0
	}

	dir, err := nowplaying.DefaultDir()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	handled, err := eventhook.Handle(args[0], stdin, dir)

	if logRuntime, logErr := logging.New(os.Getenv("PIANO_LOG_LEVEL"), "event"); logErr == nil {
		defer func() { _ = logRuntime.Close() }()
		if err != nil {
			logRuntime.Logger.Error("event hook failed", "event", args[0], "error", err.Error())
		} else if handled {
			logRuntime.Logger.Debug("status written", "event", args[0], "dir", dir)
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
