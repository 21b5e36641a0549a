package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipe.pid")

	if err := WritePIDFile(path, 12345); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}

	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if pid != 12345 {
		t.Errorf("pid = %d, want 12345", pid)
	}
}

func TestReadPIDFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipe.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadPIDFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRemovePIDFileIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipe.pid")

	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("removing a missing PID file should not error: %v", err)
	}

	if err := WritePIDFile(path, 1); err != nil {
		t.Fatal(err)
	}
	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("RemovePIDFile: %v", err)
	}
	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestDaemonStatusStopped(t *testing.T) {
	status, pid, err := DaemonStatus(filepath.Join(t.TempDir(), "ipe.pid"))
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if status != StatusStopped || pid != 0 {
		t.Errorf("status = %q pid = %d, want stopped/0", status, pid)
	}
}

func TestDaemonStatusRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipe.pid")
	// Our own PID is guaranteed alive.
	if err := WritePIDFile(path, os.Getpid()); err != nil {
		t.Fatal(err)
	}

	status, pid, err := DaemonStatus(path)
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if status != StatusRunning {
		t.Errorf("status = %q, want running", status)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestDaemonStatusStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipe.pid")
	// PID 1 exists but is not signalable from an unprivileged test; any
	// guaranteed-dead PID works. Use an absurdly high one.
	if err := WritePIDFile(path, 4194300); err != nil {
		t.Fatal(err)
	}

	status, _, err := DaemonStatus(path)
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if status != StatusStale {
		t.Errorf("status = %q, want stale", status)
	}
}
