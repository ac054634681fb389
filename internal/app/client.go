package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/ipc"
	"github.com/rbright/piano/internal/settings"
)

const (
	notPlayingMessage = "Pandora is not playing"

	// forwardTimeout covers a player launch on the owner side.
	forwardTimeout = 10 * time.Second
)

// forward sends command to the running owner. The bool is false when no
// owner is listening.
func forward(ctx context.Context, command string, text string) (ipc.Response, bool, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return ipc.Response{}, false, err
	}

	resp, err := ipc.Call(ctx, socketPath, command, text, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, false, nil
	}
	if err != nil {
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
	return resp, true, nil
}

// printResponse writes the spoken message and maps the response to an exit
// code.
func (r Runner) printResponse(resp ipc.Response) int {
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if !resp.OK {
		if resp.Error != "" {
			fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		}
		return 1
	}
	return 0
}

// commandStartable forwards play and station intents, becoming the owner
// when none is running.
func (r Runner) commandStartable(ctx context.Context, cfg config.Config, logger *slog.Logger, command string, text string) int {
	resp, handled, err := forward(ctx, command, text)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if handled {
		return r.printResponse(resp)
	}
	return r.runOwner(ctx, cfg, logger, &ipc.Request{Command: command, Text: text})
}

// forwardOrNotPlaying reports "not playing" when no owner is running.
func (r Runner) forwardOrNotPlaying(ctx context.Context, command string) int {
	resp, handled, err := forward(ctx, command, "")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !handled {
		fmt.Fprintln(r.Stdout, notPlayingMessage)
		return 1
	}
	return r.printResponse(resp)
}

// forwardOrIgnore treats a missing owner as nothing to do.
func (r Runner) forwardOrIgnore(ctx context.Context, command string) int {
	resp, handled, err := forward(ctx, command, "")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !handled {
		return 0
	}
	return r.printResponse(resp)
}

func (r Runner) commandStatus(ctx context.Context, asJSON bool) int {
	resp, handled, err := forward(ctx, ipc.CommandStatus, "")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !handled {
		resp = ipc.Response{OK: true, State: "stopped"}
	}
	if resp.State == "" {
		resp.State = "stopped"
	}

	if asJSON {
		return r.writeJSON(resp)
	}
	fmt.Fprintln(r.Stdout, renderStatus(resp, isTerminal(r.Stdout)))
	return 0
}

func (r Runner) commandStations(ctx context.Context, asJSON bool) int {
	resp, handled, err := forward(ctx, ipc.CommandStations, "")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !handled {
		resp, err = cachedStations()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	if asJSON {
		return r.writeJSON(resp)
	}
	if len(resp.Stations) == 0 {
		fmt.Fprintln(r.Stdout, "no stations known yet")
		return 0
	}
	fmt.Fprintln(r.Stdout, renderStations(resp.Stations, resp.Station, isTerminal(r.Stdout)))
	return 0
}

// cachedStations reads the catalog persisted by the last owner.
func cachedStations() (ipc.Response, error) {
	path, err := settings.DefaultPath()
	if err != nil {
		return ipc.Response{}, err
	}
	saved, err := settings.NewStore(path).Load()
	if err != nil {
		return ipc.Response{}, err
	}
	return ipc.Response{OK: true, State: "stopped", Station: saved.LastPlayed, Stations: saved.Stations}, nil
}

func (r Runner) writeJSON(resp ipc.Response) int {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintf(r.Stderr, "error: encode json: %v\n", err)
		return 1
	}
	return 0
}
