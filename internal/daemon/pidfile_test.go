package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPidfile_ClaimAndRelease(t *testing.T) {
	p := Pidfile(filepath.Join(t.TempDir(), "run", "runledgerd.pid"))

	if _, err := p.Live(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Live before claim = %v, want ErrNotRunning", err)
	}

	st := RuntimeState{PID: os.Getpid(), Addr: "127.0.0.1:8797", DBPath: "runledger.db"}
	if err := p.Claim(st); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	pid, err := p.Live()
	if err != nil || pid != os.Getpid() {
		t.Fatalf("Live = %d, %v", pid, err)
	}
	got, err := p.State()
	if err != nil || got.Addr != st.Addr || got.DBPath != st.DBPath {
		t.Errorf("State = %+v, %v", got, err)
	}
	if err := p.Claim(st); err == nil {
		t.Error("second Claim by a live process succeeded")
	}

	p.Release()
	if _, err := os.Stat(p.StatePath()); !os.IsNotExist(err) {
		t.Errorf("state file left behind: %v", err)
	}
}

func TestPidfile_StaleIsReplaced(t *testing.T) {
	p := Pidfile(filepath.Join(t.TempDir(), "runledgerd.pid"))
	// pid_max on Linux is at most 2^22, so this pid cannot exist
	if err := os.WriteFile(string(p), []byte("99999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Live(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Live on stale file = %v", err)
	}
	if _, err := os.Stat(string(p)); !os.IsNotExist(err) {
		t.Error("stale pid file not removed")
	}
	if err := p.Claim(RuntimeState{PID: os.Getpid()}); err != nil {
		t.Errorf("Claim over stale file: %v", err)
	}
}

func TestPidfile_Invalid(t *testing.T) {
	p := Pidfile(filepath.Join(t.TempDir(), "runledgerd.pid"))
	if err := os.WriteFile(string(p), []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Live(); err == nil || errors.Is(err, ErrNotRunning) {
		t.Errorf("Live on garbage = %v, want a parse error", err)
	}
}
