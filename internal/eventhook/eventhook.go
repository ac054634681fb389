// Package eventhook implements the command the player runs on each event.
// Only songstart is acted on: it dumps the event fields as the status file
// and touches the ready-marker.
package eventhook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rbright/piano/internal/nowplaying"
)

// EventSongStart is the only event that produces a status update.
const EventSongStart = "songstart"

// Handle processes one event. It returns false for ignored events.
func Handle(event string, input io.Reader, dir string) (bool, error) {
	if event != EventSongStart {
		// The player writes every event's fields; read them so it never
		// writes into a closed pipe.
		if _, err := io.Copy(io.Discard, input); err != nil {
			return false, fmt.Errorf("drain event input: %w", err)
		}
		return false, nil
	}

	raw, err := io.ReadAll(input)
	if err != nil {
		return false, fmt.Errorf("read event input: %w", err)
	}

	data, err := nowplaying.Encode(nowplaying.ParseFields(raw))
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("ensure status dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, nowplaying.StatusFile), data); err != nil {
		return false, err
	}

	marker, err := os.OpenFile(filepath.Join(dir, nowplaying.MarkerFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return false, fmt.Errorf("touch ready marker: %w", err)
	}
	if err := marker.Close(); err != nil {
		return false, fmt.Errorf("touch ready marker: %w", err)
	}
	return true, nil
}

// writeAtomic replaces path so readers never see a half-written status.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create status temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close status: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace status: %w", err)
	}
	return nil
}
