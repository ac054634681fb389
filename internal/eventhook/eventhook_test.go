package eventhook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/station"
	"github.com/stretchr/testify/require"
)

func TestSongStartWritesStatusAndMarker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pianobar")
	input := strings.NewReader("artist=Miles Davis\ntitle=So What\nstationCount=2\nstation0=Jazz Radio\nstation1=Rock\n")

	handled, err := Handle(EventSongStart, input, dir)
	require.NoError(t, err)
	require.True(t, handled)
	require.FileExists(t, filepath.Join(dir, nowplaying.MarkerFile))

	data, err := os.ReadFile(filepath.Join(dir, nowplaying.StatusFile))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "{"))

	status, err := nowplaying.ParseStatus(data)
	require.NoError(t, err)
	require.Equal(t, "Miles Davis: So What", status.Song.String())
	require.Equal(t, []station.Station{{Name: "Jazz", Index: 0}, {Name: "Rock", Index: 1}}, status.Stations)
}

func TestOtherEventsAreIgnored(t *testing.T) {
	dir := t.TempDir()

	input := strings.NewReader("artist=A\ntitle=B\n")
	handled, err := Handle("songfinish", input, dir)
	require.NoError(t, err)
	require.False(t, handled)
	require.Zero(t, input.Len())
	require.NoFileExists(t, filepath.Join(dir, nowplaying.StatusFile))
	require.NoFileExists(t, filepath.Join(dir, nowplaying.MarkerFile))
}

func TestSongStartFeedsBridge(t *testing.T) {
	dir := t.TempDir()
	_, err := Handle(EventSongStart, strings.NewReader("artist=A\ntitle=T\n"), dir)
	require.NoError(t, err)

	var got nowplaying.Status
	bridge := nowplaying.New(nowplaying.Options{Dir: dir}, nowplaying.ConsumerFunc(func(_ context.Context, status nowplaying.Status) {
		got = status
	}))

	delivered, err := bridge.Poll(context.Background())
	require.NoError(t, err)
	require.True(t, delivered)
	require.Equal(t, "A: T", got.Song.String())
	require.NoFileExists(t, filepath.Join(dir, nowplaying.MarkerFile))
}
