package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewManager(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "runs")
	manager, err := NewManager(baseDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.workspaces == nil {
		t.Fatal("Expected non-nil workspaces map")
	}

	if manager.BaseDir() != baseDir {
		t.Fatalf("Expected base dir %s, got %s", baseDir, manager.BaseDir())
	}

	// Verify the base directory exists
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Fatalf("Base directory was not created: %s", baseDir)
	}
}

func TestAllocate(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ws1, err := manager.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate workspace: %v", err)
	}
	ws2, err := manager.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate workspace: %v", err)
	}

	if ws1.ID == ws2.ID {
		t.Fatalf("Expected distinct workspace IDs, both were %s", ws1.ID)
	}

	if ws1.ArtifactPath("chart.html") == ws2.ArtifactPath("chart.html") {
		t.Fatal("Expected distinct artifact paths for distinct workspaces")
	}

	if _, err := os.Stat(ws1.Dir); os.IsNotExist(err) {
		t.Fatalf("Workspace directory was not created: %s", ws1.Dir)
	}

	if manager.Count() != 2 {
		t.Fatalf("Expected 2 live workspaces, got %d", manager.Count())
	}
}

func TestRelease(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ws, err := manager.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate workspace: %v", err)
	}
	if err := os.WriteFile(ws.ArtifactPath("chart.html"), []byte("<div>chart</div>"), 0o644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	if err := manager.Release(ws); err != nil {
		t.Fatalf("Failed to release workspace: %v", err)
	}

	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatal("Workspace directory should have been removed")
	}

	if manager.Count() != 0 {
		t.Fatalf("Expected no live workspaces, got %d", manager.Count())
	}

	if err := manager.Release(ws); !errors.Is(err, ErrReleased) {
		t.Fatalf("Expected ErrReleased on second release, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	baseDir := t.TempDir()
	manager, err := NewManager(baseDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	live, err := manager.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate workspace: %v", err)
	}

	// A directory left behind by a previous process
	stray := filepath.Join(baseDir, uuid.New().String())
	if err := os.Mkdir(stray, 0o755); err != nil {
		t.Fatalf("Failed to create stray dir: %v", err)
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stray, past, past); err != nil {
		t.Fatalf("Failed to age stray dir: %v", err)
	}

	// Unrelated directories are left alone
	unrelated := filepath.Join(baseDir, "keep-me")
	if err := os.Mkdir(unrelated, 0o755); err != nil {
		t.Fatalf("Failed to create unrelated dir: %v", err)
	}
	if err := os.Chtimes(unrelated, past, past); err != nil {
		t.Fatalf("Failed to age unrelated dir: %v", err)
	}

	removed, err := manager.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 directory removed, got %d", removed)
	}

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Fatal("Stray workspace should have been removed")
	}
	if _, err := os.Stat(live.Dir); err != nil {
		t.Fatalf("Live workspace should remain: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("Unrelated directory should remain: %v", err)
	}
}

func TestSweepKeepsWorkspacesInUse(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ws, err := manager.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate workspace: %v", err)
	}
	// Age the directory past any max age, as a long run would
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(ws.Dir, past, past); err != nil {
		t.Fatalf("Failed to age workspace: %v", err)
	}

	removed, err := manager.Sweep(0)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("Expected nothing removed, got %d", removed)
	}
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Fatalf("Workspace in use should remain: %v", err)
	}
	if err := os.WriteFile(ws.ArtifactPath("chart.html"), []byte("<div>chart</div>"), 0o644); err != nil {
		t.Fatalf("Failed to write artifact after sweep: %v", err)
	}

	if err := manager.Release(ws); err != nil {
		t.Fatalf("Failed to release workspace: %v", err)
	}
	if manager.Count() != 0 {
		t.Fatalf("Expected no live workspaces, got %d", manager.Count())
	}
}

func TestConcurrentAllocate(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	const concurrent = 20
	var wg sync.WaitGroup
	errChan := make(chan error, concurrent)

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, err := manager.Allocate()
			if err != nil {
				errChan <- err
				return
			}
			errChan <- manager.Release(ws)
		}()
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			t.Fatalf("Concurrent allocation failed: %v", err)
		}
	}

	if manager.Count() != 0 {
		t.Fatalf("Expected all workspaces released, got %d", manager.Count())
	}
}
