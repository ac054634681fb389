package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rbright/piano/internal/config"
	"github.com/rbright/piano/internal/playercfg"
)

// defaultEventHook is looked up on PATH when account.event_command is unset.
const defaultEventHook = "piano-event"

// commandConfigure writes the player config from the account section.
func (r Runner) commandConfigure(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	playerDir, err := config.PlayerDir(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	eventCommand, err := resolveEventCommand(cfg.Account.EventCommand)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	path := filepath.Join(playerDir, playercfg.FileName)
	err = playercfg.Write(ctx, playercfg.Options{
		Path:           path,
		User:           cfg.Account.User,
		Password:       cfg.Account.Password,
		AudioQuality:   cfg.Account.AudioQuality,
		EventCommand:   eventCommand,
		FingerprintCmd: cfg.Account.FingerprintCmd,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("write player config failed", "path", path, "error", err.Error())
		return 1
	}

	values, err := playercfg.Read(path)
	if err == nil {
		for _, key := range playercfg.Missing(values) {
			fmt.Fprintf(r.Stderr, "warning: player config has no %s\n", key)
		}
	}

	logger.Info("player config written", "path", path)
	fmt.Fprintf(r.Stdout, "wrote %s\n", path)
	return 0
}

// resolveEventCommand makes the hook path absolute, since the player runs it
// without piano's PATH guarantees.
func resolveEventCommand(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		command = defaultEventHook
	}
	if filepath.IsAbs(command) {
		return command, nil
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("event command %q not found on PATH: %w", command, err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve event command %q: %w", command, err)
	}
	return abs, nil
}
