package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFile reads one vocabulary file.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary %q: %w", path, err)
	}
	defer f.Close()

	phrases, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %q: %w", path, err)
	}
	return phrases, nil
}

// Parse reads .voc style content: one phrase per line, `|` separated
// alternatives, `#` comments.
func Parse(r io.Reader) ([]string, error) {
	var phrases []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, alt := range strings.Split(line, "|") {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			phrases = append(phrases, alt)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return phrases, nil
}

// Merge concatenates vocabularies, dropping duplicates while keeping first-seen order.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, phrase := range list {
			if _, ok := seen[phrase]; ok {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, phrase)
		}
	}
	return out
}
