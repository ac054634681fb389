package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildVocabularyMergesSetsAndFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.voc")
	require.NoError(t, os.WriteFile(path, []byte("# extra\nturn on|play\nmusic\n"), 0o600))

	cfg := Default()
	cfg.Vocab.Strip = []string{"pandora"}
	cfg.Vocab.Files = []string{path}

	phrases, err := BuildVocabulary(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"pandora", "Pandora", "pianobar", "turn on", "play", "music"}, phrases)
}

func TestBuildVocabularyMissingFileFails(t *testing.T) {
	cfg := Default()
	cfg.Vocab.Files = []string{filepath.Join(t.TempDir(), "missing.voc")}

	_, err := BuildVocabulary(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.voc")
}

func TestValidateWarnsOnMissingCredentials(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "account.user")
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty player argv", mutate: func(c *Config) { c.Player.Command.Argv = nil }, wantErr: "player.binary"},
		{name: "config dir not named pianobar", mutate: func(c *Config) { c.Player.ConfigDir = "/srv/radio" }, wantErr: "config_dir"},
		{name: "negative settle", mutate: func(c *Config) { c.Player.StartSettleMS = -1 }, wantErr: "start_settle_ms"},
		{name: "zero quit grace", mutate: func(c *Config) { c.Player.QuitGraceMS = 0 }, wantErr: "quit_grace_ms"},
		{name: "zero stop timeout", mutate: func(c *Config) { c.Player.StopTimeoutMS = 0 }, wantErr: "stop_timeout_ms"},
		{name: "bad audio quality", mutate: func(c *Config) { c.Account.AudioQuality = "ultra" }, wantErr: "audio_quality"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Bridge.PollIntervalMS = 0 }, wantErr: "poll_interval_ms"},
		{name: "zero idle ticks", mutate: func(c *Config) { c.Session.IdleTicks = 0 }, wantErr: "idle_ticks"},
		{name: "zero idle tick period", mutate: func(c *Config) { c.Session.IdleTickMS = 0 }, wantErr: "idle_tick_ms"},
		{name: "zero threshold", mutate: func(c *Config) { c.Session.MatchThreshold = 0 }, wantErr: "match_threshold must be within 1..100"},
		{name: "threshold above range", mutate: func(c *Config) { c.Session.MatchThreshold = 101 }, wantErr: "match_threshold"},
		{name: "negative default station", mutate: func(c *Config) { c.Session.DefaultStation = -1 }, wantErr: "default_station"},
		{name: "unknown backend", mutate: func(c *Config) { c.Indicator.Backend = "tty" }, wantErr: "indicator.backend"},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = ""
		}, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "unknown log level", mutate: func(c *Config) { c.Debug.LogLevel = "trace" }, wantErr: "debug.log_level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, "1.5s", cfg.Player.SettleDelay().String())
	require.Equal(t, "500ms", cfg.Player.QuitGrace().String())
	require.Equal(t, "3s", cfg.Player.StopTimeout().String())
	require.Equal(t, "1s", cfg.Bridge.PollInterval().String())
	require.Equal(t, "1s", cfg.Session.IdleTick().String())
}
