// Package nowplaying reads the status files the player's event hook leaves
// behind and hands fresh snapshots to the session.
package nowplaying

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rbright/piano/internal/station"
)

const (
	// StatusFile holds the last song's key/value dump.
	StatusFile = "info"
	// MarkerFile exists while StatusFile carries data nobody has consumed yet.
	MarkerFile = "info_ready"
)

// Keys written by the player for each song.
const (
	KeyTitle         = "title"
	KeyArtist        = "artist"
	KeyAlbum         = "album"
	KeyStationName   = "stationName"
	KeyStationCount  = "stationCount"
	stationKeyPrefix = "station"
)

// ErrNoInfo reports an empty status file.
var ErrNoInfo = errors.New("no now-playing info yet")

// Song is the track metadata shown to the listener.
type Song struct {
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`
	Album  string `json:"album,omitempty"`
}

// Empty reports whether no metadata is known.
func (s Song) Empty() bool {
	return s.Artist == "" && s.Title == "" && s.Album == ""
}

// String renders "artist: title", the form pushed to the display.
func (s Song) String() string {
	switch {
	case s.Artist != "" && s.Title != "":
		return s.Artist + ": " + s.Title
	case s.Title != "":
		return s.Title
	default:
		return s.Artist
	}
}

// Status is one parsed status file.
type Status struct {
	Song        Song
	StationName string
	Stations    []station.Station
	Fields      map[string]string
}

// DefaultDir returns the directory the player keeps its config and status
// files in.
func DefaultDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "pianobar"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "pianobar"), nil
}

// ParseStatus accepts either a JSON object or key=value lines.
func ParseStatus(data []byte) (Status, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Status{}, ErrNoInfo
	}

	var (
		fields map[string]string
		err    error
	)
	if trimmed[0] == '{' {
		fields, err = parseJSON(trimmed)
	} else {
		fields, err = parseKeyValue(trimmed)
	}
	if err != nil {
		return Status{}, err
	}

	stations, err := catalog(fields)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Song: Song{
			Artist: fields[KeyArtist],
			Title:  fields[KeyTitle],
			Album:  fields[KeyAlbum],
		},
		StationName: station.NormalizeName(fields[KeyStationName]),
		Stations:    stations,
		Fields:      fields,
	}, nil
}

// Encode renders fields as the JSON object ParseStatus reads back.
func Encode(fields map[string]string) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseFields reads key=value lines. Lines without '=' are skipped, and the
// value keeps any further '=' characters.
func ParseFields(data []byte) map[string]string {
	fields := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		fields[key] = strings.TrimRight(value, "\r\n")
	}
	return fields
}

func parseKeyValue(data []byte) (map[string]string, error) {
	fields := ParseFields(data)
	if len(fields) == 0 {
		return nil, errors.New("status has no key=value lines")
	}
	return fields, nil
}

func parseJSON(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode status json: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			fields[key] = ""
		case string:
			fields[key] = v
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("decode status field %q: %w", key, err)
			}
			fields[key] = string(encoded)
		}
	}
	return fields, nil
}

// catalog builds the station list from stationCount and station0..N-1.
// Missing entries are skipped but keep their player index.
func catalog(fields map[string]string) ([]station.Station, error) {
	rawCount, ok := fields[KeyStationCount]
	if !ok || strings.TrimSpace(rawCount) == "" {
		return nil, nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(rawCount))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("invalid %s %q", KeyStationCount, rawCount)
	}

	stations := make([]station.Station, 0, count)
	for i := 0; i < count; i++ {
		name, ok := fields[stationKeyPrefix+strconv.Itoa(i)]
		if !ok {
			continue
		}
		stations = append(stations, station.Station{Name: station.NormalizeName(name), Index: i})
	}
	return stations, nil
}
