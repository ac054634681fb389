// Package config resolves, parses, validates, and defaults piano configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by piano.
type Config struct {
	Player    PlayerConfig
	Account   AccountConfig
	Bridge    BridgeConfig
	Session   SessionConfig
	Vocab     VocabConfig
	Indicator IndicatorConfig
	Debug     DebugConfig
}

// PlayerConfig controls how the external player is launched and stopped.
type PlayerConfig struct {
	Command       CommandConfig
	ConfigDir     string
	KillStale     bool
	StartSettleMS int
	QuitGraceMS   int
	StopTimeoutMS int
}

// SettleDelay is the start-up window after spawn.
func (c PlayerConfig) SettleDelay() time.Duration {
	return time.Duration(c.StartSettleMS) * time.Millisecond
}

// QuitGrace is how long a quit command gets before signals follow.
func (c PlayerConfig) QuitGrace() time.Duration {
	return time.Duration(c.QuitGraceMS) * time.Millisecond
}

// StopTimeout bounds each signal escalation step.
func (c PlayerConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMS) * time.Millisecond
}

// AccountConfig holds the values written into the player's own config file.
type AccountConfig struct {
	User           string
	Password       string
	AudioQuality   string
	FingerprintCmd string
	EventCommand   string
}

// BridgeConfig controls the now-playing poll loop.
type BridgeConfig struct {
	PollIntervalMS int
	Watch          bool
}

// PollInterval is the bridge tick period.
func (c BridgeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// SessionConfig controls autopause and station matching.
type SessionConfig struct {
	IdleTicks      int
	IdleTickMS     int
	MatchThreshold int
	DefaultStation int
}

// IdleTick is the autopause idle ticker period.
func (c SessionConfig) IdleTick() time.Duration {
	return time.Duration(c.IdleTickMS) * time.Millisecond
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig names the phrase sets stripped from utterances before
// station matching.
type VocabConfig struct {
	Strip []string
	Sets  map[string]VocabSet
	Files []string
}

// VocabSet is one named phrase group.
type VocabSet struct {
	Name    string
	Phrases []string
}

// DebugConfig controls log verbosity.
type DebugConfig struct {
	LogLevel string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
