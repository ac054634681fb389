package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	player := "pianobar"

	return Config{
		Player: PlayerConfig{
			Command:       CommandConfig{Raw: player, Argv: mustSplitCommand(player)},
			KillStale:     true,
			StartSettleMS: 1500,
			QuitGraceMS:   500,
			StopTimeoutMS: 3000,
		},
		Account: AccountConfig{
			AudioQuality: "high",
			EventCommand: "piano-event",
		},
		Bridge: BridgeConfig{
			PollIntervalMS: 1000,
			Watch:          true,
		},
		Session: SessionConfig{
			IdleTicks:      2,
			IdleTickMS:     1000,
			MatchThreshold: 70,
			DefaultStation: 0,
		},
		Vocab: VocabConfig{
			Strip: []string{"play", "pandora", "station"},
			Sets: map[string]VocabSet{
				"play": {
					Name:    "play",
					Phrases: []string{"play", "listen to", "put on", "switch to", "change to", "change the station to"},
				},
				"pandora": {
					Name:    "pandora",
					Phrases: []string{"pandora", "Pandora", "pianobar"},
				},
				"station": {
					Name:    "station",
					Phrases: []string{"station", "channel"},
				},
			},
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "piano-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}
