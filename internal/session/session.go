// Package session coordinates the listening session: player commands,
// station selection, autopause, and now-playing updates.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rbright/piano/internal/fsm"
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/settings"
	"github.com/rbright/piano/internal/station"
)

// Player is the session-facing subset of the process controller.
type Player interface {
	Start(context.Context) error
	Send(string) error
	IsAlive() bool
	Stop(context.Context) error
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowNowPlaying(context.Context, string)
	ShowPaused(context.Context)
	ShowError(context.Context, string)
	CuePause(context.Context)
	CueResume(context.Context)
	Hide(context.Context)
}

// Store persists what must survive an owner restart.
type Store interface {
	Load() (settings.Settings, error)
	Save(settings.Settings) error
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowNowPlaying(context.Context, string) {}
func (noopIndicator) ShowPaused(context.Context)             {}
func (noopIndicator) ShowError(context.Context, string)      {}
func (noopIndicator) CuePause(context.Context)               {}
func (noopIndicator) CueResume(context.Context)              {}
func (noopIndicator) Hide(context.Context)                   {}

// Options wires a Controller.
type Options struct {
	Player         Player
	Indicator      Indicator
	Store          Store
	Logger         *slog.Logger
	Vocabulary     []string
	MatchThreshold int
	DefaultStation int
	IdleTicks      int
}

// View is a consistent snapshot of the session.
type View struct {
	State      fsm.State
	Current    *station.Station
	LastPlayed *station.Station
	Song       nowplaying.Song
	Stations   []station.Station
	Alive      bool
}

// Controller owns the one session of an owner daemon.
type Controller struct {
	player     Player
	indicator  Indicator
	store      Store
	logger     *slog.Logger
	vocabulary []string
	threshold  int
	fallback   int
	idleLimit  int

	catalog atomic.Pointer[[]station.Station]

	// opMu serializes intents so each transition and its player commands
	// apply as one step.
	opMu sync.Mutex

	// persistMu keeps each snapshot-and-save atomic, so the file never
	// ends on an older view than memory.
	persistMu sync.Mutex

	mu         sync.RWMutex
	state      fsm.State
	current    *station.Station
	lastPlayed *station.Station
	song       nowplaying.Song
	idleTicks  int
	// pending is a play request made before the catalog was known.
	pending string

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(opts Options) *Controller {
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	threshold := opts.MatchThreshold
	if threshold <= 0 {
		threshold = station.DefaultThreshold
	}
	idleLimit := opts.IdleTicks
	if idleLimit <= 0 {
		idleLimit = 2
	}

	c := &Controller{
		player:     opts.Player,
		indicator:  indicator,
		store:      opts.Store,
		logger:     opts.Logger,
		vocabulary: opts.Vocabulary,
		threshold:  threshold,
		fallback:   opts.DefaultStation,
		idleLimit:  idleLimit,
		state:      fsm.StateStopped,
		shutdown:   make(chan struct{}),
	}
	empty := []station.Station{}
	c.catalog.Store(&empty)
	return c
}

// Restore loads the persisted last-played station and catalog.
func (c *Controller) Restore() error {
	if c.store == nil {
		return nil
	}
	saved, err := c.store.Load()
	if err != nil {
		return err
	}

	if len(saved.Stations) > 0 {
		c.swapCatalog(saved.Stations)
	}
	if saved.LastPlayed != nil {
		last := *saved.LastPlayed
		c.mu.Lock()
		c.lastPlayed = &last
		c.mu.Unlock()
	}
	return nil
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stations returns the current catalog. Callers must not modify it.
func (c *Controller) Stations() []station.Station {
	return *c.catalog.Load()
}

// Snapshot returns a consistent copy of the session.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	view := View{
		State:      c.state,
		Current:    copyStation(c.current),
		LastPlayed: copyStation(c.lastPlayed),
		Song:       c.song,
	}
	c.mu.RUnlock()

	view.Stations = append([]station.Station(nil), c.Stations()...)
	view.Alive = c.player != nil && c.player.IsAlive()
	return view
}

// Done is closed once a shutdown intent has been handled.
func (c *Controller) Done() <-chan struct{} {
	return c.shutdown
}

// ApplySnapshot takes a status loaded by the now-playing bridge.
func (c *Controller) ApplySnapshot(ctx context.Context, status nowplaying.Status) {
	catalogChanged := false
	if len(status.Stations) > 0 && !sameStations(c.Stations(), status.Stations) {
		c.swapCatalog(status.Stations)
		catalogChanged = true
	}

	c.mu.Lock()
	c.song = status.Song
	if status.StationName != "" {
		if st, ok := findByName(c.Stations(), status.StationName); ok {
			c.current = &st
		}
	}
	if catalogChanged {
		c.current = nameFromCatalog(c.current, c.Stations())
		c.lastPlayed = nameFromCatalog(c.lastPlayed, c.Stations())
	}
	c.mu.Unlock()

	if catalogChanged {
		c.resolvePending(ctx)
		c.persist()
	}

	// A pending switch clears the song, since it belonged to the old station.
	c.mu.RLock()
	state, song := c.state, c.song
	c.mu.RUnlock()
	if state == fsm.StatePlaying && !song.Empty() {
		c.indicator.ShowNowPlaying(ctx, song.String())
	}
	c.log(slog.LevelDebug, "now playing", "song", status.Song.String(), "station", status.StationName, "stations", len(status.Stations))
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) (fsm.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.log(slog.LevelWarn, "session transition rejected", "state", string(c.state), "event", string(event), "error", err.Error())
		return c.state, err
	}
	c.state = next
	return next, nil
}

func (c *Controller) swapCatalog(stations []station.Station) {
	next := append([]station.Station(nil), stations...)
	c.catalog.Store(&next)
}

// persist saves the last-played station and catalog. Failures are logged.
func (c *Controller) persist() {
	if c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	value := settings.Settings{LastPlayed: copyStation(c.lastPlayed)}
	c.mu.RUnlock()
	value.Stations = append([]station.Station(nil), c.Stations()...)

	if err := c.store.Save(value); err != nil {
		c.log(slog.LevelWarn, "persist session failed", "error", err.Error())
	}
}

func (c *Controller) log(level slog.Level, msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(context.Background(), level, msg, args...)
}

func copyStation(st *station.Station) *station.Station {
	if st == nil {
		return nil
	}
	out := *st
	return &out
}

func sameStations(a, b []station.Station) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// nameFromCatalog fills in the name of a station known only by index.
func nameFromCatalog(st *station.Station, catalog []station.Station) *station.Station {
	if st == nil || st.Name != "" {
		return st
	}
	if found, ok := station.Find(catalog, st.Index); ok {
		return &found
	}
	return st
}

func findByName(stations []station.Station, name string) (station.Station, bool) {
	for _, st := range stations {
		if st.Name == name {
			return st, true
		}
	}
	return station.Station{}, false
}
