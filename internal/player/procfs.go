package player

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// commLen is the kernel's TASK_COMM_LEN minus the trailing NUL.
const commLen = 15

// procRoot is swapped by tests.
var procRoot = "/proc"

// KillByName sends SIGKILL to every process (other than this one) whose
// command name matches name. It returns the pids signalled.
func KillByName(name string) ([]int, error) {
	pids, err := FindByName(name)
	if err != nil {
		return nil, err
	}

	killed := make([]int, 0, len(pids))
	var errs []error
	for _, pid := range pids {
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}
			errs = append(errs, fmt.Errorf("kill %d: %w", pid, err))
			continue
		}
		killed = append(killed, pid)
	}
	return killed, errors.Join(errs...)
}

// FindByName lists pids whose /proc comm equals name (truncated the way the
// kernel truncates it).
func FindByName(name string) ([]int, error) {
	want := commName(name)
	if want == "" {
		return nil, errors.New("process name must not be empty")
	}

	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procRoot, err)
	}

	self := os.Getpid()
	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == want {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// Alive reports whether pid exists. EPERM still means the process exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func commName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return ""
	}
	if len(base) > commLen {
		base = base[:commLen]
	}
	return base
}
