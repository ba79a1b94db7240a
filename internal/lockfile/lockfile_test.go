package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	target := filepath.Join(t.TempDir(), "vocab.json")

	l, err := Acquire(target, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); err != nil {
		t.Fatalf("lock file should exist while held: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Error("lock file should be gone after release")
	}
}

func TestAcquireBlocksSecondHolder(t *testing.T) {
	target := filepath.Join(t.TempDir(), "vocab.json")

	l, err := Acquire(target, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	if _, err := Acquire(target, 100*time.Millisecond); err == nil {
		t.Error("second Acquire should time out while lock is held")
	}
}

func TestAcquireBreaksStaleLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "vocab.json")
	lockPath := target + ".lock"

	if err := os.WriteFile(lockPath, []byte("99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * StaleAfter)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(target, time.Second)
	if err != nil {
		t.Fatalf("Acquire should break a stale lock: %v", err)
	}
	l.Release()
}

func TestParsePID(t *testing.T) {
	if pid, ok := ParsePID("1234\n"); !ok || pid != 1234 {
		t.Errorf("ParsePID = %d %v, want 1234 true", pid, ok)
	}
	if _, ok := ParsePID("garbage"); ok {
		t.Error("ParsePID should fail on non-numeric contents")
	}
}
