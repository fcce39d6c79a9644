package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrNotRunning is returned when no live daemon owns the PID file.
var ErrNotRunning = errors.New("daemon is not running")

// RuntimeState is written next to the PID file so status can find the API.
type RuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path"`
}

// Pidfile is the PID file of a daemon process plus its JSON state file.
type Pidfile string

// StatePath is the runtime state file beside the PID file.
func (p Pidfile) StatePath() string { return string(p) + ".json" }

// Claim records st as the running daemon. It fails if a live process
// already holds the file; a stale file is replaced.
func (p Pidfile) Claim(st RuntimeState) error {
	if pid, err := p.Live(); err == nil {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	} else if !errors.Is(err, ErrNotRunning) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(string(p), []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.StatePath(), append(data, '\n'), 0o600)
}

// Release removes both files.
func (p Pidfile) Release() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.StatePath())
}

// PID reads the recorded process id.
func (p Pidfile) PID() (int, error) {
	data, err := os.ReadFile(string(p)) //nolint:gosec // daemon pid path is configured by the local user
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

// Live returns the PID when its process is alive. A missing file or a dead
// process gives ErrNotRunning; the stale files are removed.
func (p Pidfile) Live() (int, error) {
	pid, err := p.PID()
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, err
	}
	if !ProcessAlive(pid) {
		p.Release()
		return pid, ErrNotRunning
	}
	return pid, nil
}

// State reads the runtime state file.
func (p Pidfile) State() (RuntimeState, error) {
	var st RuntimeState
	data, err := os.ReadFile(p.StatePath()) //nolint:gosec // beside the pid file
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

// Stop sends SIGTERM and waits up to timeout for the process to exit.
func (p Pidfile) Stop(timeout time.Duration) (int, error) {
	pid, err := p.Live()
	if err != nil {
		return pid, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return pid, fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			p.Release()
			return pid, nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

// ProcessAlive probes pid with signal 0.
func ProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
