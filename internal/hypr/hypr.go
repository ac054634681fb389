// Package hypr drives Hyprland notifications through hyprctl.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultColor is used when a caller passes no notification color.
const DefaultColor = "rgb(a6e3a1)"

// Icons understood by hyprctl notify.
const (
	IconWarning  = 0
	IconInfo     = 1
	IconHint     = 2
	IconError    = 3
	IconConfused = 4
	IconOK       = 5
)

// Notify shows a Hyprland notification.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	return run(ctx, "--quiet", "dispatch", "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// DismissNotify dismisses every active Hyprland notification.
func DismissNotify(ctx context.Context) error {
	return run(ctx, "--quiet", "dispatch", "dismissnotify")
}

// Version returns the first line of hyprctl's version report. It fails when
// hyprctl is missing or no compositor instance answers.
func Version(ctx context.Context) (string, error) {
	out, err := output(ctx, "version")
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if first == "" {
		return "", fmt.Errorf("hyprctl version returned no output")
	}
	return first, nil
}

func run(ctx context.Context, args ...string) error {
	_, err := output(ctx, args...)
	return err
}

func output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
