package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/piano/internal/nowplaying"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "piano", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "piano", "config.jsonc"), nil
}

// PlayerDir is where the player reads its config and the event hook writes
// status files.
func PlayerDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.Player.ConfigDir); dir != "" {
		return dir, nil
	}
	return nowplaying.DefaultDir()
}
