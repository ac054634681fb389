package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Player    *jsoncPlayer    `json:"player"`
	Account   *jsoncAccount   `json:"account"`
	Bridge    *jsoncBridge    `json:"bridge"`
	Session   *jsoncSession   `json:"session"`
	Vocab     *jsoncVocab     `json:"vocab"`
	Indicator *jsoncIndicator `json:"indicator"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncPlayer struct {
	Binary        *string `json:"binary"`
	ConfigDir     *string `json:"config_dir"`
	KillStale     *bool   `json:"kill_stale"`
	StartSettleMS *int    `json:"start_settle_ms"`
	QuitGraceMS   *int    `json:"quit_grace_ms"`
	StopTimeoutMS *int    `json:"stop_timeout_ms"`
}

type jsoncAccount struct {
	User           *string `json:"user"`
	Password       *string `json:"password"`
	AudioQuality   *string `json:"audio_quality"`
	FingerprintCmd *string `json:"fingerprint_cmd"`
	EventCommand   *string `json:"event_command"`
}

type jsoncBridge struct {
	PollIntervalMS *int  `json:"poll_interval_ms"`
	Watch          *bool `json:"watch"`
}

type jsoncSession struct {
	IdleTicks      *int `json:"idle_ticks"`
	IdleTickMS     *int `json:"idle_tick_ms"`
	MatchThreshold *int `json:"match_threshold"`
	DefaultStation *int `json:"default_station"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncVocab struct {
	Strip *jsoncStringList           `json:"strip"`
	Sets  map[string]jsoncStringList `json:"sets"`
	Files *jsoncStringList           `json:"files"`
}

type jsoncDebug struct {
	LogLevel *string `json:"log_level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Player != nil {
		if payload.Player.Binary != nil {
			raw := *payload.Player.Binary
			argv, err := splitCommand(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid player.binary: %w", err)
			}
			cfg.Player.Command = CommandConfig{Raw: raw, Argv: argv}
		}
		if payload.Player.ConfigDir != nil {
			cfg.Player.ConfigDir = strings.TrimSpace(*payload.Player.ConfigDir)
		}
		if payload.Player.KillStale != nil {
			cfg.Player.KillStale = *payload.Player.KillStale
		}
		if payload.Player.StartSettleMS != nil {
			cfg.Player.StartSettleMS = *payload.Player.StartSettleMS
		}
		if payload.Player.QuitGraceMS != nil {
			cfg.Player.QuitGraceMS = *payload.Player.QuitGraceMS
		}
		if payload.Player.StopTimeoutMS != nil {
			cfg.Player.StopTimeoutMS = *payload.Player.StopTimeoutMS
		}
	}

	if payload.Account != nil {
		if payload.Account.User != nil {
			cfg.Account.User = strings.TrimSpace(*payload.Account.User)
		}
		if payload.Account.Password != nil {
			cfg.Account.Password = *payload.Account.Password
		}
		if payload.Account.AudioQuality != nil {
			cfg.Account.AudioQuality = strings.ToLower(strings.TrimSpace(*payload.Account.AudioQuality))
		}
		if payload.Account.FingerprintCmd != nil {
			cfg.Account.FingerprintCmd = strings.TrimSpace(*payload.Account.FingerprintCmd)
		}
		if payload.Account.EventCommand != nil {
			cfg.Account.EventCommand = strings.TrimSpace(*payload.Account.EventCommand)
		}
	}

	if payload.Bridge != nil {
		if payload.Bridge.PollIntervalMS != nil {
			cfg.Bridge.PollIntervalMS = *payload.Bridge.PollIntervalMS
		}
		if payload.Bridge.Watch != nil {
			cfg.Bridge.Watch = *payload.Bridge.Watch
		}
	}

	if payload.Session != nil {
		if payload.Session.IdleTicks != nil {
			cfg.Session.IdleTicks = *payload.Session.IdleTicks
		}
		if payload.Session.IdleTickMS != nil {
			cfg.Session.IdleTickMS = *payload.Session.IdleTickMS
		}
		if payload.Session.MatchThreshold != nil {
			cfg.Session.MatchThreshold = *payload.Session.MatchThreshold
		}
		if payload.Session.DefaultStation != nil {
			cfg.Session.DefaultStation = *payload.Session.DefaultStation
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*payload.Indicator.Backend)
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Vocab != nil {
		if payload.Vocab.Strip != nil {
			cfg.Vocab.Strip = trimmedList(*payload.Vocab.Strip)
		}
		if payload.Vocab.Files != nil {
			cfg.Vocab.Files = trimmedList(*payload.Vocab.Files)
		}
		if payload.Vocab.Sets != nil {
			sets := make(map[string]VocabSet, len(cfg.Vocab.Sets)+len(payload.Vocab.Sets))
			for name, set := range cfg.Vocab.Sets {
				sets[name] = set
			}
			for name, phrases := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}
				if _, exists := sets[trimmedName]; exists {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("vocab set %q overrides the built-in set", trimmedName)})
				}
				sets[trimmedName] = VocabSet{Name: trimmedName, Phrases: append([]string(nil), phrases...)}
			}
			cfg.Vocab.Sets = sets
		}
	}

	if payload.Debug != nil && payload.Debug.LogLevel != nil {
		cfg.Debug.LogLevel = strings.ToLower(strings.TrimSpace(*payload.Debug.LogLevel))
	}

	return warnings, nil
}

func trimmedList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// normalizeJSONC blanks comments and trailing commas in place, so decoder
// offsets still point into the original text.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	pendingComma := -1

	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c == '"':
			i = stringEnd(buf, i)
			pendingComma = -1
		case c == '/' && i+1 < len(buf) && buf[i+1] == '/':
			for i < len(buf) && buf[i] != '\n' && buf[i] != '\r' {
				buf[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(buf) && buf[i+1] == '*':
			n := bytes.Index(buf[i+2:], []byte("*/"))
			if n < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end := i + 2 + n + 2
			blankOut(buf[i:end])
			i = end - 1
		case c == ',':
			pendingComma = i
		case c == '}' || c == ']':
			if pendingComma >= 0 {
				buf[pendingComma] = ' '
			}
			pendingComma = -1
		case isJSONWhitespace(c):
		default:
			pendingComma = -1
		}
	}
	return string(buf), nil
}

// stringEnd returns the index of the quote closing the string opened at
// start. An unterminated string runs to the end for the decoder to report.
func stringEnd(buf []byte, start int) int {
	for i := start + 1; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return len(buf) - 1
}

// blankOut replaces everything but line structure with spaces.
func blankOut(b []byte) {
	for i, c := range b {
		if c != '\n' && c != '\r' && c != '\t' {
			b[i] = ' '
		}
	}
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
