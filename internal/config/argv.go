package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// splitCommand turns player.binary into argv. Single and double quotes group
// words, a backslash escapes the next rune, and a leading '#' disables the
// command. A leading "~/" on the program path expands to the home directory.
func splitCommand(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] == '#' {
		return nil, nil
	}

	var (
		words   []string
		word    strings.Builder
		inWord  bool
		open    rune
		escaped bool
	)
	for _, r := range raw {
		if escaped {
			word.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped, inWord = true, true
		case open != 0 && r == open:
			open = 0
		case open != 0:
			word.WriteRune(r)
		case r == '"' || r == '\'':
			open, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("command %q ends in a dangling escape", raw)
	case open != 0:
		return nil, fmt.Errorf("command %q has an unterminated %c quote", raw, open)
	}
	if inWord {
		words = append(words, word.String())
	}

	words[0] = expandHome(words[0])
	return words, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

func mustSplitCommand(raw string) []string {
	words, err := splitCommand(raw)
	if err != nil {
		panic(err)
	}
	return words
}
