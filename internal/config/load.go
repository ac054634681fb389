package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Loaded is one resolved config file and the values read from it.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath, or the default location when empty.
// A missing file yields the defaults plus a warning.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	out := Loaded{Path: path, Config: Default()}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		out.Warnings = append(out.Warnings, Warning{Message: fmt.Sprintf("no config at %q; using defaults", path)})
		return out, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("stat config %q: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), out.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	out.Config = cfg
	out.Warnings = warnings
	out.Exists = true

	if cfg.Account.Password != "" && info.Mode().Perm()&0o077 != 0 {
		out.Warnings = append(out.Warnings, Warning{
			Message: fmt.Sprintf("%q holds account.password but has mode %04o; chmod 600 it", path, info.Mode().Perm()),
		})
	}
	return out, nil
}
