// Package vocab loads trigger phrases and strips them from spoken utterances.
package vocab

import (
	"sort"
	"strings"
)

// Strip removes every literal occurrence of each vocabulary phrase from utterance
// and collapses the remaining whitespace.
//
// Longer phrases are removed first. Removal repeats until a pass changes nothing,
// so joins created by one removal cannot leave a phrase behind.
func Strip(utterance string, vocabulary []string) string {
	phrases := orderPhrases(vocabulary)
	out := collapseWhitespace(utterance)
	for {
		before := out
		for _, phrase := range phrases {
			out = strings.ReplaceAll(out, phrase, " ")
		}
		out = collapseWhitespace(out)
		if out == before {
			return out
		}
	}
}

// orderPhrases drops blank entries and sorts longest-first.
func orderPhrases(vocabulary []string) []string {
	phrases := make([]string, 0, len(vocabulary))
	seen := make(map[string]struct{}, len(vocabulary))
	for _, phrase := range vocabulary {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		phrases = append(phrases, phrase)
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i]) > len(phrases[j])
	})
	return phrases
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
