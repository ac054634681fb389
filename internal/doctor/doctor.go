// Package doctor runs readiness diagnostics for config, the player, the event
// hook, audio output, and the indicator backend.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/piano/internal/audio"
	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/hypr"
	"github.com/rbright/piano/internal/playercfg"
	"golang.org/x/sys/unix"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}

	checks = append(checks, checkCommand(cfg.Config.Player.Command.Argv, "player"))
	checks = append(checks, checkEventHook(cfg.Config.Account.EventCommand))
	checks = append(checks, checkFingerprintCommand(cfg.Config.Account.FingerprintCmd))

	playerDir, err := config.PlayerDir(cfg.Config)
	if err != nil {
		checks = append(checks, Check{Name: "player.dir", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, checkWritableDir("player.dir", playerDir))
		checks = append(checks, checkPlayerConfig(filepath.Join(playerDir, playercfg.FileName)))
	}

	checks = append(checks, checkRuntimeDir())
	checks = append(checks, checkAudioOutput(ctx))
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkIndicator(ctx, cfg.Config.Indicator))
	}

	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkEventHook(command string) Check {
	command = strings.TrimSpace(command)
	if command == "" {
		return Check{Name: "event_command", Pass: false, Message: "account.event_command is empty"}
	}
	check := checkBinary(command, "player event hook")
	check.Name = "event_command"
	return check
}

// checkFingerprintCommand checks the first program of the shell pipeline.
func checkFingerprintCommand(command string) Check {
	command = strings.TrimSpace(command)
	if command == "" {
		command = playercfg.DefaultFingerprintCmd
	}
	fields := strings.Fields(command)
	check := checkBinary(fields[0], "tls fingerprint command")
	check.Name = "fingerprint_cmd"
	return check
}

func checkPlayerConfig(path string) Check {
	values, err := playercfg.Read(path)
	if err != nil {
		return Check{Name: "player.config", Pass: false, Message: fmt.Sprintf("%v (run `piano configure`)", err)}
	}
	if missing := playercfg.Missing(values); len(missing) > 0 {
		return Check{
			Name:    "player.config",
			Pass:    false,
			Message: fmt.Sprintf("%s missing %s (run `piano configure`)", path, strings.Join(missing, ", ")),
		}
	}
	return Check{Name: "player.config", Pass: true, Message: fmt.Sprintf("complete at %s", path)}
}

// checkWritableDir requires dir to exist and accept new files.
func checkWritableDir(name string, dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("writable %s", dir)}
}

func checkRuntimeDir() Check {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: false, Message: "XDG_RUNTIME_DIR is not set"}
	}
	return checkWritableDir("XDG_RUNTIME_DIR", dir)
}

func checkAudioOutput(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sink, err := audio.DefaultOutput(ctx)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Message: err.Error()}
	}
	return Check{Name: "audio.sink", Pass: true, Message: fmt.Sprintf("default sink %q (%s)", sink.ID, sink.State)}
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) Check {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		check := checkBinary("busctl", "desktop notifications")
		check.Name = "indicator"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	version, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "indicator", Pass: false, Message: err.Error()}
	}
	return Check{Name: "indicator", Pass: true, Message: version}
}
