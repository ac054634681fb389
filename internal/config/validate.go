package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rbright/piano/internal/logging"
	"github.com/rbright/piano/internal/vocab"
)

var audioQualities = map[string]bool{"low": true, "medium": true, "high": true}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if len(cfg.Player.Command.Argv) == 0 {
		return nil, fmt.Errorf("player.binary must not be empty")
	}
	if dir := cfg.Player.ConfigDir; dir != "" && filepath.Base(filepath.Clean(dir)) != "pianobar" {
		return nil, fmt.Errorf("player.config_dir must name a directory called pianobar")
	}
	if cfg.Player.StartSettleMS < 0 {
		return nil, fmt.Errorf("player.start_settle_ms must be >= 0")
	}
	if cfg.Player.QuitGraceMS <= 0 {
		return nil, fmt.Errorf("player.quit_grace_ms must be > 0")
	}
	if cfg.Player.StopTimeoutMS <= 0 {
		return nil, fmt.Errorf("player.stop_timeout_ms must be > 0")
	}
	if cfg.Account.AudioQuality != "" && !audioQualities[cfg.Account.AudioQuality] {
		return nil, fmt.Errorf("account.audio_quality must be one of: low, medium, high")
	}
	if cfg.Bridge.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("bridge.poll_interval_ms must be > 0")
	}
	if cfg.Session.IdleTicks <= 0 {
		return nil, fmt.Errorf("session.idle_ticks must be > 0")
	}
	if cfg.Session.IdleTickMS <= 0 {
		return nil, fmt.Errorf("session.idle_tick_ms must be > 0")
	}
	if cfg.Session.MatchThreshold < 1 || cfg.Session.MatchThreshold > 100 {
		return nil, fmt.Errorf("session.match_threshold must be within 1..100")
	}
	if cfg.Session.DefaultStation < 0 {
		return nil, fmt.Errorf("session.default_station must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if _, err := logging.ParseLevel(cfg.Debug.LogLevel); err != nil {
		return nil, fmt.Errorf("debug.log_level: %w", err)
	}

	for _, name := range cfg.Vocab.Strip {
		if _, ok := cfg.Vocab.Sets[name]; !ok {
			return nil, fmt.Errorf("vocab.strip references unknown set %q", name)
		}
	}

	if cfg.Account.User == "" || cfg.Account.Password == "" {
		warnings = append(warnings, Warning{Message: "account.user or account.password is empty; configure will write an incomplete player config"})
	}
	if cfg.Session.MatchThreshold < 50 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("session.match_threshold=%d is low; unrelated stations may match", cfg.Session.MatchThreshold)})
	}

	return warnings, nil
}

// BuildVocabulary merges the stripped sets and vocabulary files into one
// phrase list, in config order.
func BuildVocabulary(cfg Config) ([]string, error) {
	lists := make([][]string, 0, len(cfg.Vocab.Strip)+len(cfg.Vocab.Files))
	for _, name := range cfg.Vocab.Strip {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, fmt.Errorf("vocab.strip references unknown set %q", name)
		}
		lists = append(lists, set.Phrases)
	}
	for _, path := range cfg.Vocab.Files {
		phrases, err := vocab.LoadFile(path)
		if err != nil {
			return nil, err
		}
		lists = append(lists, phrases)
	}
	return vocab.Merge(lists...), nil
}
