// Package station models the external player's station catalog and resolves
// spoken station names against it.
package station

import (
	"strings"
)

// DefaultThreshold is the minimum similarity score accepted by Match.
const DefaultThreshold = 70

// noiseWord is appended by the player to most station names.
const noiseWord = "Radio"

// Station is one entry of the player's station list. Index is the identity the
// player assigned at enumeration time.
type Station struct {
	Name  string `json:"name" toml:"name"`
	Index int    `json:"index" toml:"index"`
}

// NormalizeName removes the noise word and surrounding whitespace from a
// player-supplied station name.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	out := fields[:0]
	for _, field := range fields {
		if field == noiseWord {
			continue
		}
		out = append(out, field)
	}
	normalized := strings.Join(out, " ")
	if normalized == "" {
		return strings.TrimSpace(name)
	}
	return normalized
}

// Find returns the station with the given index.
func Find(stations []Station, index int) (Station, bool) {
	for _, st := range stations {
		if st.Index == index {
			return st, true
		}
	}
	return Station{}, false
}
