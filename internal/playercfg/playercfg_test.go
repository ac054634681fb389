package playercfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRendersAllKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pianobar", FileName)

	err := Write(context.Background(), Options{
		Path:           path,
		User:           "listener@example.com",
		Password:       "hunter2",
		AudioQuality:   "high",
		EventCommand:   "/usr/bin/piano-event",
		FingerprintCmd: `echo "SHA1 Fingerprint=2D:0A:FD:AF:A1:6F:4B:5C:0A:43:F3:CB:1D:47:F2:8C:FD:3B:A1:11"`,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `audio_quality = high
tls_fingerprint = 2D0AFDAFA16F4B5C0A43F3CB1D47F28CFD3BA111
user = listener@example.com
password = hunter2
event_command = /usr/bin/piano-event
`, string(data))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestWriteOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("stale = true\n"), 0o644))

	opts := Options{Path: path, User: "a", Fingerprint: "ab:cd"}
	require.NoError(t, Write(context.Background(), opts))
	require.NoError(t, Write(context.Background(), opts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "tls_fingerprint = ABCD\nuser = a\n", string(data))
}

func TestWriteFailsWhenFingerprintCommandFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	err := Write(context.Background(), Options{Path: path, FingerprintCmd: "echo boom >&2; exit 3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.NoFileExists(t, path)
}

func TestWriteRejectsEmptyPath(t *testing.T) {
	require.Error(t, Write(context.Background(), Options{Fingerprint: "AB"}))
}

func TestFingerprintRejectsGarbageOutput(t *testing.T) {
	_, err := Fingerprint(context.Background(), "echo unable to load certificate", 0)
	require.Error(t, err)
}

func TestNormalizeFingerprint(t *testing.T) {
	tests := map[string]string{
		"SHA1 Fingerprint=AA:BB:cc\n": "AABBCC",
		"sha1 Fingerprint=0a:1b":      "0A1B",
		"AABB":                        "AABB",
		"":                            "",
		"not a fingerprint":           "",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeFingerprint(in), in)
	}
}

func TestReadRoundTripsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Write(context.Background(), Options{
		Path:         path,
		User:         "listener@example.com",
		Password:     "a = b",
		EventCommand: "/usr/bin/piano-event",
		Fingerprint:  "AB:CD",
	}))

	values, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "ABCD", values["tls_fingerprint"])
	require.Equal(t, "a = b", values["password"])
	require.Empty(t, Missing(values))
}

func TestReadReportsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nuser = a\nbogus\n"), 0o600))

	_, err := Read(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 4")
}

func TestMissingListsRequiredKeys(t *testing.T) {
	require.Equal(t, []string{"tls_fingerprint", "password", "event_command"}, Missing(map[string]string{"user": "a", "password": ""}))
	require.Equal(t, RequiredKeys, Missing(nil))
}
