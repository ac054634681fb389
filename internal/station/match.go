package station

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Match returns the station whose name best matches utterance, when the best
// score reaches threshold. Equal scores keep the earliest station.
func Match(utterance string, stations []Station, threshold int) (Station, bool) {
	query := fold(utterance)
	if query == "" || len(stations) == 0 {
		return Station{}, false
	}

	best := -1
	bestScore := -1
	for i, st := range stations {
		score := Score(query, fold(st.Name))
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < threshold {
		return Station{}, false
	}
	return stations[best], true
}

// Score is a 0..100 similarity between a and b. It takes the strongest of a
// whole-string ratio, a best-window partial ratio, and a token-set ratio.
func Score(a, b string) int {
	a = fold(a)
	b = fold(b)
	if a == "" || b == "" {
		return 0
	}

	score := ratio(a, b)
	if partial := scaled(partialRatio(a, b), 0.9); partial > score {
		score = partial
	}
	if tokens := scaled(tokenSetRatio(a, b), 0.95); tokens > score {
		score = tokens
	}
	return score
}

// fold case-folds and collapses whitespace. Casers are stateful, so each call
// builds its own.
func fold(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

func scaled(score int, weight float64) int {
	return int(math.Round(float64(score) * weight))
}

// ratio is 100 * (1 - distance/longest) over runes.
func ratio(a, b string) int {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}

// partialRatio compares the shorter string against every equal-length window
// of the longer one.
func partialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		r := ratio(string(short), string(long[start:start+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// tokenSetRatio scores the shared tokens against each side's full token set.
func tokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)

	var common, onlyA, onlyB []string
	for token := range ta {
		if _, ok := tb[token]; ok {
			common = append(common, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for token := range tb {
		if _, ok := ta[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if base != "" {
		best = max(best, ratio(base, withA), ratio(base, withB))
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		out[token] = struct{}{}
	}
	return out
}
