package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/piano/internal/fsm"
	"github.com/rbright/piano/internal/ipc"
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/player"
	"github.com/rbright/piano/internal/settings"
	"github.com/rbright/piano/internal/station"
	"github.com/stretchr/testify/require"
)

var testStations = []station.Station{
	{Name: "Today's Hits", Index: 0},
	{Name: "Jazz", Index: 1},
	{Name: "Lo-Fi Beats", Index: 2},
}

type fakePlayer struct {
	mu       sync.Mutex
	sent     []string
	alive    atomic.Bool
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
	sendErr  error
}

func (p *fakePlayer) Start(context.Context) error {
	p.starts.Add(1)
	if p.startErr != nil {
		return p.startErr
	}
	p.alive.Store(true)
	return nil
}

func (p *fakePlayer) Send(cmd string) error {
	if !p.alive.Load() {
		return player.ErrNotRunning
	}
	if p.sendErr != nil {
		return p.sendErr
	}
	p.mu.Lock()
	p.sent = append(p.sent, cmd)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) IsAlive() bool { return p.alive.Load() }

func (p *fakePlayer) Stop(context.Context) error {
	p.stops.Add(1)
	p.alive.Store(false)
	return nil
}

func (p *fakePlayer) commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

func (p *fakePlayer) reset() {
	p.mu.Lock()
	p.sent = nil
	p.mu.Unlock()
}

type fakeIndicator struct {
	nowPlaying atomic.Int32
	paused     atomic.Int32
	errors     atomic.Int32
	cuePause   atomic.Int32
	cueResume  atomic.Int32
	hides      atomic.Int32

	mu       sync.Mutex
	lastSong string
	lastErr  string
}

func (f *fakeIndicator) ShowNowPlaying(_ context.Context, song string) {
	f.nowPlaying.Add(1)
	f.mu.Lock()
	f.lastSong = song
	f.mu.Unlock()
}

func (f *fakeIndicator) ShowPaused(context.Context) { f.paused.Add(1) }

func (f *fakeIndicator) ShowError(_ context.Context, text string) {
	f.errors.Add(1)
	f.mu.Lock()
	f.lastErr = text
	f.mu.Unlock()
}

func (f *fakeIndicator) CuePause(context.Context)  { f.cuePause.Add(1) }
func (f *fakeIndicator) CueResume(context.Context) { f.cueResume.Add(1) }
func (f *fakeIndicator) Hide(context.Context)      { f.hides.Add(1) }

type memStore struct {
	mu      sync.Mutex
	value   settings.Settings
	saves   int
	loadErr error
}

func (s *memStore) Load() (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loadErr
}

func (s *memStore) Save(value settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.saves++
	return nil
}

func (s *memStore) snapshot() (settings.Settings, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.saves
}

type harness struct {
	ctrl      *Controller
	player    *fakePlayer
	indicator *fakeIndicator
	store     *memStore
}

func newHarness(t *testing.T) harness {
	t.Helper()
	h := harness{
		player:    &fakePlayer{},
		indicator: &fakeIndicator{},
		store:     &memStore{},
	}
	h.ctrl = NewController(Options{
		Player:     h.player,
		Indicator:  h.indicator,
		Store:      h.store,
		Vocabulary: []string{"play", "pandora", "Pandora", "station", "channel"},
		IdleTicks:  2,
	})
	h.ctrl.ApplySnapshot(context.Background(), nowplaying.Status{Stations: testStations})
	return h
}

// playing brings the harness to a playing session on the jazz station with a
// clean command log.
func (h harness) playing(t *testing.T) {
	t.Helper()
	reply := h.ctrl.Play(context.Background(), "play my jazz station")
	require.NoError(t, reply.Err)
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
	h.player.reset()
}

func TestPlayStartsPlayerOnMatchedStation(t *testing.T) {
	h := newHarness(t)

	reply := h.ctrl.Play(context.Background(), "play my jazz station")
	require.NoError(t, reply.Err)
	require.Equal(t, "Playing Jazz", reply.Message)
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, reply.Station)

	require.Equal(t, int32(1), h.player.starts.Load())
	require.Equal(t, []string{"1\n"}, h.player.commands())
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
	require.Equal(t, int32(1), h.indicator.cueResume.Load())

	saved, _ := h.store.snapshot()
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, saved.LastPlayed)
	require.Equal(t, testStations, saved.Stations)
}

func TestPlayWithoutMatchFallsBackToLastPlayed(t *testing.T) {
	h := newHarness(t)
	h.store.value = settings.Settings{LastPlayed: &station.Station{Name: "Lo-Fi Beats", Index: 2}}
	require.NoError(t, h.ctrl.Restore())

	reply := h.ctrl.Play(context.Background(), "play polka")
	require.NoError(t, reply.Err)
	require.Equal(t, "I couldn't find polka, playing Lo-Fi Beats", reply.Message)
	require.Equal(t, []string{"2\n"}, h.player.commands())
}

func TestPlayWithoutHistoryUsesDefaultStation(t *testing.T) {
	h := newHarness(t)

	reply := h.ctrl.Play(context.Background(), "play pandora")
	require.NoError(t, reply.Err)
	require.Equal(t, "Playing Today's Hits", reply.Message)
	require.Equal(t, []string{"0\n"}, h.player.commands())
}

func TestPlayWithEmptyCatalogUsesStationIndex(t *testing.T) {
	ctrl := NewController(Options{Player: &fakePlayer{}, DefaultStation: 3})

	reply := ctrl.Play(context.Background(), "")
	require.NoError(t, reply.Err)
	require.Equal(t, &station.Station{Index: 3}, reply.Station)
	require.Equal(t, "Playing station 4", reply.Message)
}

func TestPlayWhilePlayingSwitchesStation(t *testing.T) {
	h := newHarness(t)
	h.playing(t)

	reply := h.ctrl.Play(context.Background(), "play lofi beats")
	require.NoError(t, reply.Err)
	require.Equal(t, []string{player.CmdPause, "s2\n", player.CmdResume}, h.player.commands())
	require.Equal(t, int32(1), h.player.starts.Load())
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
	require.Equal(t, 2, h.ctrl.Snapshot().Current.Index)
}

func TestPlayWhilePausedWithoutStationResumes(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	require.NoError(t, h.ctrl.Pause(context.Background()).Err)
	h.player.reset()

	reply := h.ctrl.Play(context.Background(), "play pandora")
	require.NoError(t, reply.Err)
	require.Equal(t, msgResuming, reply.Message)
	require.Equal(t, []string{player.CmdResume}, h.player.commands())
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
}

func TestChangeStationWhilePausedSkipsPause(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	require.NoError(t, h.ctrl.Pause(context.Background()).Err)
	h.player.reset()

	reply := h.ctrl.ChangeStation(context.Background(), "today's hits")
	require.NoError(t, reply.Err)
	require.Equal(t, []string{"s0\n", player.CmdResume}, h.player.commands())
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
}

func TestChangeStationWithoutPlayerStartsPlayback(t *testing.T) {
	h := newHarness(t)

	reply := h.ctrl.ChangeStation(context.Background(), "jazz channel")
	require.NoError(t, reply.Err)
	require.Equal(t, int32(1), h.player.starts.Load())
	require.Equal(t, []string{"1\n"}, h.player.commands())
}

func TestCommandsWithoutPlayerReportNotPlaying(t *testing.T) {
	h := newHarness(t)

	for name, run := range map[string]func(context.Context) Reply{
		"pause":  h.ctrl.Pause,
		"resume": h.ctrl.Resume,
		"next":   h.ctrl.Next,
	} {
		t.Run(name, func(t *testing.T) {
			reply := run(context.Background())
			require.ErrorIs(t, reply.Err, player.ErrNotRunning)
			require.Equal(t, "Pandora is not playing", reply.Message)
			require.Equal(t, fsm.StateStopped, h.ctrl.State())
		})
	}
	require.Empty(t, h.player.commands())
}

func TestPauseAfterPlayerDiedKeepsState(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	h.player.alive.Store(false)

	reply := h.ctrl.Pause(context.Background())
	require.ErrorIs(t, reply.Err, player.ErrNotRunning)
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
}

func TestPauseResumeNext(t *testing.T) {
	h := newHarness(t)
	h.playing(t)

	require.Equal(t, msgPaused, h.ctrl.Pause(context.Background()).Message)
	require.Equal(t, fsm.StatePaused, h.ctrl.State())
	require.Equal(t, int32(1), h.indicator.cuePause.Load())
	require.Equal(t, int32(1), h.indicator.paused.Load())

	reply := h.ctrl.Resume(context.Background())
	require.NoError(t, reply.Err)
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, reply.Station)
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())

	require.NoError(t, h.ctrl.Next(context.Background()).Err)
	require.Equal(t, []string{player.CmdPause, player.CmdResume, player.CmdNext}, h.player.commands())
}

func TestSendFailureSurfacesPlayerError(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	h.player.sendErr = errors.New("broken pipe")

	reply := h.ctrl.Next(context.Background())
	require.Error(t, reply.Err)
	require.Equal(t, msgPlayerError, reply.Message)
	require.Equal(t, int32(1), h.indicator.errors.Load())
}

func TestLaunchFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "wrong credentials",
			err:  &player.LaunchError{Diagnosis: player.DiagnosisWrongCredentials, Err: errors.New("exit status 1")},
			want: msgLaunchCreds,
		},
		{
			name: "no stations",
			err:  &player.LaunchError{Diagnosis: player.DiagnosisNoStations},
			want: msgLaunchEmpty,
		},
		{
			name: "generic",
			err:  &player.LaunchError{Diagnosis: player.DiagnosisGeneric, Err: errors.New("exec: not found")},
			want: msgLaunchGeneric,
		},
		{
			name: "locked",
			err:  &player.LaunchError{Diagnosis: player.DiagnosisGeneric, Err: fmt.Errorf("lock: %w", player.ErrLocked)},
			want: msgLaunchLocked,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: msgLaunchGeneric,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.player.startErr = tc.err

			reply := h.ctrl.Play(context.Background(), "play jazz")
			require.ErrorIs(t, reply.Err, tc.err)
			require.Equal(t, tc.want, reply.Message)
			require.Equal(t, fsm.StateStopped, h.ctrl.State())
			require.Equal(t, int32(1), h.indicator.errors.Load())
			require.Empty(t, h.player.commands())

			h.indicator.mu.Lock()
			defer h.indicator.mu.Unlock()
			require.Equal(t, tc.want, h.indicator.lastErr)
		})
	}
}

func TestStopPausesAndKeepsPlayer(t *testing.T) {
	h := newHarness(t)

	reply := h.ctrl.Stop(context.Background())
	require.NoError(t, reply.Err)
	require.Equal(t, fsm.StateStopped, h.ctrl.State())

	h.playing(t)
	require.NoError(t, h.ctrl.Stop(context.Background()).Err)
	require.Equal(t, fsm.StatePaused, h.ctrl.State())
	require.Equal(t, []string{player.CmdPause}, h.player.commands())
	require.True(t, h.player.IsAlive())

	require.NoError(t, h.ctrl.Stop(context.Background()).Err)
	require.Equal(t, []string{player.CmdPause}, h.player.commands())
}

func TestShutdownStopsPlayerAndClosesDone(t *testing.T) {
	h := newHarness(t)
	h.playing(t)

	reply := h.ctrl.Shutdown(context.Background())
	require.NoError(t, reply.Err)
	require.Equal(t, fsm.StateStopped, h.ctrl.State())
	require.Equal(t, int32(1), h.player.stops.Load())
	require.Equal(t, int32(1), h.indicator.hides.Load())
	require.Nil(t, h.ctrl.Snapshot().Current)

	select {
	case <-h.ctrl.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	require.NoError(t, h.ctrl.Shutdown(context.Background()).Err)

	saved, _ := h.store.snapshot()
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, saved.LastPlayed)
}

func TestAutopauseResumesAfterIdleTicks(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	ctx := context.Background()

	h.ctrl.ListenerStarted(ctx)
	require.Equal(t, fsm.StateAutopause, h.ctrl.State())
	require.Equal(t, []string{player.CmdPause}, h.player.commands())

	require.False(t, h.ctrl.IdleTick(ctx))
	h.ctrl.ListenerActivity()
	require.False(t, h.ctrl.IdleTick(ctx))
	require.Equal(t, fsm.StateAutopause, h.ctrl.State())

	require.True(t, h.ctrl.IdleTick(ctx))
	require.Equal(t, fsm.StatePlaying, h.ctrl.State())
	require.Equal(t, []string{player.CmdPause, player.CmdResume}, h.player.commands())
}

func TestListenerStartedAgainRestartsIdleCount(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	ctx := context.Background()

	h.ctrl.ListenerStarted(ctx)
	require.False(t, h.ctrl.IdleTick(ctx))
	h.ctrl.ListenerStarted(ctx)
	require.False(t, h.ctrl.IdleTick(ctx))
	require.Equal(t, fsm.StateAutopause, h.ctrl.State())
	require.Equal(t, []string{player.CmdPause}, h.player.commands())
}

func TestListenerIgnoredUnlessPlaying(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ctrl.ListenerStarted(ctx)
	require.Equal(t, fsm.StateStopped, h.ctrl.State())

	h.playing(t)
	require.NoError(t, h.ctrl.Pause(ctx).Err)
	h.ctrl.ListenerStarted(ctx)
	require.Equal(t, fsm.StatePaused, h.ctrl.State())

	for i := 0; i < 5; i++ {
		require.False(t, h.ctrl.IdleTick(ctx))
	}
	require.Equal(t, fsm.StatePaused, h.ctrl.State())
}

func TestIdleTickAfterPlayerExitStops(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	ctx := context.Background()

	h.ctrl.ListenerStarted(ctx)
	h.player.alive.Store(false)

	require.False(t, h.ctrl.IdleTick(ctx))
	require.False(t, h.ctrl.IdleTick(ctx))
	require.Equal(t, fsm.StateStopped, h.ctrl.State())
}

func TestRunIdleTickerResumesAutopause(t *testing.T) {
	h := newHarness(t)
	h.playing(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.ctrl.ListenerStarted(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ctrl.RunIdleTicker(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return h.ctrl.State() == fsm.StatePlaying
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestApplySnapshotUpdatesSongAndCatalog(t *testing.T) {
	h := newHarness(t)
	h.playing(t)
	_, savesBefore := h.store.snapshot()

	renamed := []station.Station{{Name: "Hits", Index: 0}, {Name: "Jazz", Index: 1}}
	h.ctrl.ApplySnapshot(context.Background(), nowplaying.Status{
		Song:        nowplaying.Song{Artist: "Miles Davis", Title: "So What"},
		StationName: "Jazz",
		Stations:    renamed,
	})

	view := h.ctrl.Snapshot()
	require.Equal(t, renamed, view.Stations)
	require.Equal(t, "Miles Davis: So What", view.Song.String())
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, view.Current)
	require.Equal(t, int32(1), h.indicator.nowPlaying.Load())

	_, savesAfter := h.store.snapshot()
	require.Equal(t, savesBefore+1, savesAfter)

	h.ctrl.ApplySnapshot(context.Background(), nowplaying.Status{Stations: renamed})
	_, savesAgain := h.store.snapshot()
	require.Equal(t, savesAfter, savesAgain)
}

func TestPlayBeforeCatalogSwitchesOnceStationsArrive(t *testing.T) {
	p := &fakePlayer{}
	store := &memStore{}
	ctrl := NewController(Options{Player: p, Store: store, Vocabulary: []string{"play"}})
	ctx := context.Background()

	reply := ctrl.Play(ctx, "play jazz")
	require.NoError(t, reply.Err)
	require.Equal(t, "Starting Pandora, looking for jazz", reply.Message)
	require.Equal(t, []string{"0\n"}, p.commands())

	ctrl.ApplySnapshot(ctx, nowplaying.Status{StationName: "Today's Hits", Stations: testStations[:2]})

	jazz := &station.Station{Name: "Jazz", Index: 1}
	require.Equal(t, []string{"0\n", player.CmdPause, player.SwitchStation(1), player.CmdResume}, p.commands())
	view := ctrl.Snapshot()
	require.Equal(t, fsm.StatePlaying, view.State)
	require.Equal(t, jazz, view.Current)
	require.Equal(t, jazz, view.LastPlayed)
	saved, _ := store.snapshot()
	require.Equal(t, jazz, saved.LastPlayed)

	ctrl.ApplySnapshot(ctx, nowplaying.Status{StationName: "Jazz", Stations: testStations})
	require.Len(t, p.commands(), 4)
}

func TestPlayBeforeCatalogStaysPutWhenNameNeverMatches(t *testing.T) {
	p := &fakePlayer{}
	ind := &fakeIndicator{}
	store := &memStore{}
	ctrl := NewController(Options{Player: p, Indicator: ind, Store: store, Vocabulary: []string{"play"}})
	ctx := context.Background()

	require.NoError(t, ctrl.Play(ctx, "play polka").Err)
	ctrl.ApplySnapshot(ctx, nowplaying.Status{Stations: testStations})

	require.Equal(t, []string{"0\n"}, p.commands())
	require.Equal(t, int32(1), ind.errors.Load())
	require.Equal(t, "I couldn't find polka", ind.lastErr)

	hits := &station.Station{Name: "Today's Hits", Index: 0}
	require.Equal(t, hits, ctrl.Snapshot().LastPlayed)
	saved, _ := store.snapshot()
	require.Equal(t, hits, saved.LastPlayed)
}

// slowStore flags overlapping saves and keeps the last value written.
type slowStore struct {
	memStore
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (s *slowStore) Save(value settings.Settings) error {
	if s.inFlight.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	defer s.inFlight.Add(-1)
	time.Sleep(2 * time.Millisecond)
	return s.memStore.Save(value)
}

func TestPersistKeepsNewestSessionView(t *testing.T) {
	store := &slowStore{}
	ctrl := NewController(Options{Player: &fakePlayer{}, Store: store})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ctrl.setPlaying(testStations[i%len(testStations)])
		}(i)
		go func(i int) {
			defer wg.Done()
			ctrl.ApplySnapshot(ctx, nowplaying.Status{Stations: testStations[:1+i%len(testStations)]})
		}(i)
	}
	wg.Wait()

	require.Zero(t, store.overlaps.Load())
	view := ctrl.Snapshot()
	saved, _ := store.snapshot()
	require.Equal(t, view.LastPlayed, saved.LastPlayed)
	require.Equal(t, view.Stations, saved.Stations)
}

func TestApplySnapshotWhilePausedStaysQuiet(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ApplySnapshot(context.Background(), nowplaying.Status{
		Song: nowplaying.Song{Artist: "A", Title: "B"},
	})
	require.Equal(t, int32(0), h.indicator.nowPlaying.Load())
}

func TestRestoreReadsStore(t *testing.T) {
	store := &memStore{value: settings.Settings{
		LastPlayed: &station.Station{Name: "Jazz", Index: 1},
		Stations:   testStations,
	}}
	ctrl := NewController(Options{Store: store})

	require.NoError(t, ctrl.Restore())
	view := ctrl.Snapshot()
	require.Equal(t, testStations, view.Stations)
	require.Equal(t, &station.Station{Name: "Jazz", Index: 1}, view.LastPlayed)
	require.False(t, view.Alive)

	failing := NewController(Options{Store: &memStore{loadErr: errors.New("corrupt")}})
	require.Error(t, failing.Restore())
}

func TestHandleMapsCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandPause})
	require.False(t, resp.OK)
	require.Equal(t, "Pandora is not playing", resp.Message)
	require.Equal(t, string(fsm.StateStopped), resp.State)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandPlay, Text: "play my jazz station"})
	require.True(t, resp.OK)
	require.Equal(t, "playing", resp.State)
	require.Equal(t, "Jazz", resp.Station.Name)
	require.Empty(t, resp.Stations)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, testStations, resp.Stations)
	require.Equal(t, "Jazz", resp.Station.Name)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandListen})
	require.True(t, resp.OK)
	require.Equal(t, "autopause", resp.State)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandActivity})
	require.True(t, resp.OK)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStations})
	require.Equal(t, "Your stations are Today's Hits, Jazz and Lo-Fi Beats", resp.Message)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "rewind"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestStationsMessage(t *testing.T) {
	require.Equal(t, msgNoStations, stationsMessage(nil))
	require.Equal(t, "Your station is Jazz", stationsMessage([]station.Station{{Name: "Jazz"}}))
	require.Equal(t, "Your stations are Jazz and Rock", stationsMessage([]station.Station{{Name: "Jazz"}, {Name: "Rock", Index: 1}}))
}
