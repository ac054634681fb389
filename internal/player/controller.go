// Package player owns the external pianobar process: launch, stdin command
// injection, liveness, and shutdown.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// State is the controller's view of the player lifecycle.
type State string

const (
	StateAbsent      State = "absent"
	StateStarting    State = "starting"
	StateReady       State = "ready"
	StateTerminating State = "terminating"
)

// Options configures how the player is launched and stopped.
type Options struct {
	Argv        []string
	Env         []string
	LockPath    string
	KillStale   bool
	SettleDelay time.Duration
	QuitGrace   time.Duration
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// process is one spawned player instance.
type process struct {
	id     string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *capture
	done   chan struct{}
	err    error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Controller tracks at most one live player process.
type Controller struct {
	opts   Options
	logger *slog.Logger
	lock   *flock.Flock

	mu    sync.Mutex
	state State
	proc  *process

	// writeMu serializes stdin writes so command bytes never interleave.
	writeMu sync.Mutex
}

// NewController builds a controller. Start does not run until called.
func NewController(opts Options) *Controller {
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.QuitGrace <= 0 {
		opts.QuitGrace = 500 * time.Millisecond
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 3 * time.Second
	}

	c := &Controller{
		opts:   opts,
		logger: opts.Logger,
		state:  StateAbsent,
	}
	if opts.LockPath != "" {
		c.lock = flock.New(opts.LockPath)
	}
	return c
}

// State returns the lifecycle state snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc != nil && c.proc.exited() {
		return StateAbsent
	}
	return c.state
}

// IsAlive reports whether a tracked process exists and has not exited.
func (c *Controller) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc != nil && !c.proc.exited()
}

// PID returns the tracked process id, or 0.
func (c *Controller) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil {
		return 0
	}
	return c.proc.pid()
}

// Output returns the captured tail of the tracked player's output.
func (c *Controller) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil {
		return ""
	}
	return c.proc.output.String()
}

// Start replaces any running player with a fresh one.
func (c *Controller) Start(ctx context.Context) error {
	if len(c.opts.Argv) == 0 {
		return &LaunchError{Diagnosis: DiagnosisGeneric, Err: errors.New("player command is empty")}
	}

	c.mu.Lock()
	prev := c.proc
	c.proc = nil
	if prev != nil {
		c.state = StateTerminating
	}
	c.mu.Unlock()

	if prev != nil {
		c.terminate(prev)
	} else if c.opts.KillStale {
		if pids, err := KillByName(c.opts.Argv[0]); err != nil {
			c.log(slog.LevelWarn, "kill stale player failed", "error", err.Error())
		} else if len(pids) > 0 {
			c.log(slog.LevelInfo, "killed stale player", "pids", pids)
		}
	}

	if err := c.acquireLock(); err != nil {
		c.setState(StateAbsent)
		return &LaunchError{Diagnosis: DiagnosisGeneric, Err: err}
	}

	proc, err := c.spawn()
	if err != nil {
		c.releaseLock()
		c.setState(StateAbsent)
		return &LaunchError{Diagnosis: DiagnosisGeneric, Err: err}
	}

	c.mu.Lock()
	c.proc = proc
	c.state = StateStarting
	c.mu.Unlock()

	c.log(slog.LevelInfo, "player started", "launch_id", proc.id, "pid", proc.pid())

	if err := c.settle(ctx, proc); err != nil {
		c.mu.Lock()
		if c.proc == proc {
			c.proc = nil
			c.state = StateTerminating
		}
		c.mu.Unlock()
		c.terminate(proc)
		c.releaseLock()
		c.setState(StateAbsent)
		return err
	}

	c.mu.Lock()
	if c.proc == proc {
		c.state = StateReady
	}
	c.mu.Unlock()
	return nil
}

// Send writes raw command characters to the player's stdin.
func (c *Controller) Send(command string) error {
	c.mu.Lock()
	proc := c.proc
	c.mu.Unlock()

	if proc == nil || proc.exited() {
		return ErrNotRunning
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := io.WriteString(proc.stdin, command); err != nil {
		// EPIPE means the reader is gone even if Wait has not reported it yet.
		if proc.exited() || errors.Is(err, unix.EPIPE) {
			return ErrNotRunning
		}
		return fmt.Errorf("write player command %q: %w", command, err)
	}
	c.log(slog.LevelDebug, "player command sent", "launch_id", proc.id, "command", command)
	return nil
}

// Stop quits the tracked player and releases the handle. Calling Stop with no
// tracked player is a no-op.
func (c *Controller) Stop(context.Context) error {
	c.mu.Lock()
	proc := c.proc
	c.proc = nil
	if proc == nil {
		c.state = StateAbsent
		c.mu.Unlock()
		return nil
	}
	c.state = StateTerminating
	c.mu.Unlock()

	c.terminate(proc)
	c.releaseLock()
	c.setState(StateAbsent)
	c.log(slog.LevelInfo, "player stopped", "launch_id", proc.id)
	return nil
}

// spawn starts the process with stdin piped and output captured.
func (c *Controller) spawn() (*process, error) {
	argv := c.opts.Argv
	cmd := exec.Command(argv[0], argv[1:]...)
	if len(c.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), c.opts.Env...)
	}

	output := newCapture(defaultCaptureLimit)
	cmd.Stdout = output
	cmd.Stderr = output

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start %s: %w", filepath.Base(argv[0]), err)
	}

	proc := &process{
		id:     uuid.NewString(),
		cmd:    cmd,
		stdin:  stdin,
		output: output,
		done:   make(chan struct{}),
	}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

// settle waits out the start-up window. A process that exits, or prints a
// known failure, inside the window fails the launch.
func (c *Controller) settle(ctx context.Context, proc *process) error {
	timer := time.NewTimer(c.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &LaunchError{Diagnosis: DiagnosisGeneric, Output: proc.output.String(), Err: ctx.Err()}
	case <-proc.done:
		out := proc.output.String()
		err := proc.err
		if err == nil {
			err = errors.New("player exited during start-up")
		}
		return &LaunchError{Diagnosis: Classify(out), Output: out, Err: err}
	case <-timer.C:
	}

	if out := proc.output.String(); failed(out) {
		return &LaunchError{Diagnosis: Classify(out), Output: out, Err: errors.New("player reported a start-up failure")}
	}
	return nil
}

// terminate asks the process to quit, then escalates to SIGTERM and SIGKILL.
func (c *Controller) terminate(proc *process) {
	defer func() { _ = proc.stdin.Close() }()

	if proc.exited() {
		return
	}

	c.writeMu.Lock()
	_, quitErr := io.WriteString(proc.stdin, CmdQuit)
	c.writeMu.Unlock()

	if quitErr == nil && waitDone(proc.done, c.opts.QuitGrace) {
		return
	}

	if pid := proc.pid(); pid > 0 {
		_ = unix.Kill(pid, unix.SIGTERM)
	}
	if waitDone(proc.done, c.opts.StopTimeout) {
		return
	}

	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
	if !waitDone(proc.done, c.opts.StopTimeout) {
		c.log(slog.LevelError, "player did not exit after SIGKILL", "launch_id", proc.id, "pid", proc.pid())
	}
}

func (c *Controller) acquireLock() error {
	if c.lock == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.lock.Path()), 0o700); err != nil {
		return fmt.Errorf("ensure player lock dir: %w", err)
	}
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire player lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (c *Controller) releaseLock() {
	if c.lock == nil || !c.lock.Locked() {
		return
	}
	if err := c.lock.Unlock(); err != nil {
		c.log(slog.LevelWarn, "release player lock failed", "error", err.Error())
	}
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) log(level slog.Level, msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(context.Background(), level, msg, args...)
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
