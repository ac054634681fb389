// Package settings persists the small amount of session state that must
// survive restarts.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/rbright/piano/internal/station"
)

// Settings is the persisted session subset.
type Settings struct {
	LastPlayed *station.Station  `toml:"last_played,omitempty"`
	Stations   []station.Station `toml:"stations,omitempty"`
	UpdatedAt  time.Time         `toml:"updated_at"`
}

// Store reads and writes Settings at a fixed path.
type Store struct {
	path string
	// mu orders writers within this process. The flock handle is shared, and
	// locking it again from the same process does not block.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore returns a store rooted at path. The sibling `.lock` file serializes
// writers across processes.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns persisted settings, or zero Settings when none exist yet.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("read settings %q: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Settings{}, nil
	}

	var out Settings
	if err := toml.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("decode settings %q: %w", s.path, err)
	}
	return out, nil
}

// Save atomically replaces the settings file.
func (s *Store) Save(value Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure settings dir: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = time.Now().UTC()
	}
	data, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace settings %q: %w", s.path, err)
	}
	return nil
}

// DefaultPath resolves XDG_STATE_HOME (or ~/.local/state) for settings.toml.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "piano", "settings.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for settings")
	}
	return filepath.Join(home, ".local", "state", "piano", "settings.toml"), nil
}
