// Package playercfg writes the external player's config file.
package playercfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the player config file inside the player directory.
const FileName = "config"

// DefaultFingerprintCmd prints the SHA1 fingerprint of the tuner's TLS cert.
const DefaultFingerprintCmd = "openssl s_client -connect tuner.pandora.com:443 < /dev/null 2> /dev/null | openssl x509 -noout -fingerprint"

const defaultFingerprintTimeout = 15 * time.Second

// Options are the values written to the player config.
type Options struct {
	Path           string
	User           string
	Password       string
	AudioQuality   string
	EventCommand   string
	FingerprintCmd string

	// Fingerprint skips FingerprintCmd when set.
	Fingerprint string
	Timeout     time.Duration
}

// Write resolves the fingerprint and replaces the config file at opts.Path.
func Write(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.Path) == "" {
		return errors.New("player config path is empty")
	}

	fingerprint := NormalizeFingerprint(opts.Fingerprint)
	if fingerprint == "" {
		var err error
		fingerprint, err = Fingerprint(ctx, opts.FingerprintCmd, opts.Timeout)
		if err != nil {
			return err
		}
	}

	data := Render(opts, fingerprint)
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return fmt.Errorf("ensure player config dir: %w", err)
	}
	return writeAtomic(opts.Path, data)
}

// Render builds the config body. Empty values are left out.
func Render(opts Options, fingerprint string) []byte {
	var b bytes.Buffer
	line := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&b, "%s = %s\n", key, value)
		}
	}
	line("audio_quality", opts.AudioQuality)
	line("tls_fingerprint", fingerprint)
	line("user", opts.User)
	line("password", opts.Password)
	line("event_command", opts.EventCommand)
	return b.Bytes()
}

// Fingerprint runs command through sh and extracts the hex fingerprint.
func Fingerprint(ctx context.Context, command string, timeout time.Duration) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		command = DefaultFingerprintCmd
	}
	if timeout <= 0 {
		timeout = defaultFingerprintTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("fingerprint command failed: %w", err)
		}
		return "", fmt.Errorf("fingerprint command failed: %w: %s", err, msg)
	}

	fingerprint := NormalizeFingerprint(stdout.String())
	if fingerprint == "" {
		return "", errors.New("fingerprint command printed no fingerprint")
	}
	return fingerprint, nil
}

// NormalizeFingerprint reduces "SHA1 Fingerprint=AA:BB:..." (or bare hex)
// to upper-case hex digits.
func NormalizeFingerprint(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "="); idx >= 0 {
		raw = raw[idx+1:]
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - 'a' + 'A')
		case r == ':' || r == ' ' || r == '\n' || r == '\r' || r == '\t':
		default:
			return ""
		}
	}
	return b.String()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return fmt.Errorf("create player config temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod player config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write player config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close player config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace player config: %w", err)
	}
	return nil
}

// RequiredKeys are the keys a usable player config must carry.
var RequiredKeys = []string{"tls_fingerprint", "user", "password", "event_command"}

// Read parses an existing player config into its key/value pairs. Blank
// lines and lines starting with '#' are skipped.
func Read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read player config: %w", err)
	}

	values := map[string]string{}
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("player config line %d: missing '='", n+1)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values, nil
}

// Missing lists the required keys absent or empty in values.
func Missing(values map[string]string) []string {
	var missing []string
	for _, key := range RequiredKeys {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
