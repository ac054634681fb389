package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning reports a responsive owner already holding the socket.
var ErrAlreadyRunning = errors.New("piano owner already running")

// ErrNoOwner reports that no owner daemon is listening.
var ErrNoOwner = errors.New("piano owner is not running")

const (
	defaultProbeTimeout = 200 * time.Millisecond
	defaultLockTimeout  = 2 * time.Second
	lockRetryDelay      = 10 * time.Millisecond
)

// RuntimeSocketPath is the owner socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "piano.sock"), nil
}

// AcquireOptions tunes Acquire. Zero values pick defaults.
type AcquireOptions struct {
	// ProbeTimeout bounds the status probe sent to an existing socket.
	ProbeTimeout time.Duration
	// LockTimeout bounds the wait behind another process that is acquiring.
	LockTimeout time.Duration
	// Rescue runs after a stale socket is removed and before listening again.
	Rescue func(context.Context)
}

// Acquire makes the caller the owner listening on path. Acquirers serialize
// on path+".lock", so only one of several racing clients replaces a stale
// socket; the rest find the new owner and get ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, opts.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock owner socket %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock owner socket %s: held by another process", path)
	}
	defer func() { _ = lock.Unlock() }()

	listener, err := listen(path)
	if err == nil || !isAddrInUse(err) {
		return listener, err
	}

	alive, err := Probe(ctx, path, opts.ProbeTimeout)
	if alive {
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("probe existing socket %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	if opts.Rescue != nil {
		opts.Rescue(ctx)
	}
	return listen(path)
}

func listen(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("restrict socket %s: %w", path, err)
	}
	return listener, nil
}

func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
