package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"condense/internal/logging"
)

func makeDir(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if age > 0 {
		when := time.Now().Add(-age)
		if err := os.Chtimes(path, when, when); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "meeting-old")
	makeDir(t, oldDir, 2*time.Hour)
	recentDir := filepath.Join(tmpDir, "meeting-recent")
	makeDir(t, recentDir, 0)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleZeroAgeRemovesAllButKept(t *testing.T) {
	tmpDir := t.TempDir()
	current := filepath.Join(tmpDir, "current-run")
	other := filepath.Join(tmpDir, "other-run")
	makeDir(t, current, 0)
	makeDir(t, other, 0)
	lockFile := filepath.Join(tmpDir, ".condense.lock")
	if err := os.WriteFile(lockFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, 0, nil, current)

	if len(result.Removed) != 1 || result.Removed[0] != other {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	for _, path := range []string{current, lockFile} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestCleanStaleStopsOnCancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	makeDir(t, filepath.Join(tmpDir, "a"), 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, tmpDir, time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancellation, got %v", result.Removed)
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	runDir := filepath.Join(tmpDir, "run-1")
	makeDir(t, filepath.Join(runDir, "split"), 0)
	if err := os.WriteFile(filepath.Join(runDir, "split", "chunk_000.txt"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "run-1" || dirs[0].Size != 5 || dirs[0].Files != 1 {
		t.Fatalf("unexpected listing %+v", dirs)
	}

	missing, err := ListDirectories(filepath.Join(tmpDir, "absent"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil listing for missing root, got %v %v", missing, err)
	}
}
