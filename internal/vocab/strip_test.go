package vocab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name       string
		utterance  string
		vocabulary []string
		want       string
	}{
		{name: "no vocabulary", utterance: "play  jazz   radio", vocabulary: nil, want: "play jazz radio"},
		{name: "single words", utterance: "play my jazz station", vocabulary: []string{"play", "my", "station"}, want: "jazz"},
		{name: "phrase before sub-word", utterance: "switch to the jazz station", vocabulary: []string{"to", "switch to"}, want: "the jazz station"},
		{name: "case sensitive", utterance: "Play jazz", vocabulary: []string{"play"}, want: "Play jazz"},
		{name: "blank entries ignored", utterance: "play jazz", vocabulary: []string{"", "  "}, want: "play jazz"},
		{name: "everything removed", utterance: "pandora", vocabulary: []string{"pandora"}, want: ""},
		{name: "join recreates phrase", utterance: "aab b", vocabulary: []string{"a b", "ab"}, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Strip(tc.utterance, tc.vocabulary))
		})
	}
}

func TestStripIdempotentAndNoResidue(t *testing.T) {
	vocabularies := [][]string{
		{"play", "pandora", "on"},
		{"a b", "ab", "b"},
		{"radio", "the radio", "station"},
		{"x  y", "y"},
	}
	utterances := []string{
		"play the radio station on pandora",
		"aab  b ab a b",
		"the radioradio station",
		"x  y y x",
		"",
	}

	for _, vocabulary := range vocabularies {
		for _, utterance := range utterances {
			once := Strip(utterance, vocabulary)
			require.Equal(t, once, Strip(once, vocabulary), "utterance=%q vocab=%q", utterance, vocabulary)
			for _, phrase := range vocabulary {
				require.False(t, strings.Contains(once, phrase), "residual %q in %q", phrase, once)
			}
		}
	}
}

func TestParseVocabularyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PlayKeyword.voc")
	content := "# trigger words\nplay|start\n\n  listen to  \n|\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	phrases, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"play", "start", "listen to"}, phrases)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.voc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "open vocabulary")
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	require.Equal(t, []string{"play", "pandora", "radio"}, Merge([]string{"play", "pandora"}, []string{"pandora", "radio"}))
}
