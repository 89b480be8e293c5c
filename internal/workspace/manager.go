package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrReleased is returned when a released workspace is used again
var ErrReleased = errors.New("workspace already released")

// Workspace is a request-scoped directory that holds one generated artifact
type Workspace struct {
	ID       string
	Dir      string
	released bool
}

// ArtifactPath returns the path of the named artifact inside the workspace
func (w *Workspace) ArtifactPath(name string) string {
	return filepath.Join(w.Dir, name)
}

// Manager allocates and reclaims workspaces under a base directory
type Manager struct {
	workspaces map[string]*Workspace
	mutex      sync.Mutex
	baseDir    string
}

// NewManager creates a workspace manager rooted at baseDir.
// An empty baseDir falls back to a directory under the system temp dir.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "growth-charts")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace base directory: %w", err)
	}
	baseDir = abs
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace base directory: %w", err)
	}

	return &Manager{
		workspaces: make(map[string]*Workspace),
		baseDir:    baseDir,
	}, nil
}

// BaseDir returns the directory all workspaces live under
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Allocate creates a fresh workspace with a unique ID
func (m *Manager) Allocate() (*Workspace, error) {
	id := uuid.New().String()

	dir := filepath.Join(m.baseDir, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	ws := &Workspace{
		ID:  id,
		Dir: dir,
	}

	m.mutex.Lock()
	m.workspaces[id] = ws
	m.mutex.Unlock()

	return ws, nil
}

// Release removes the workspace and its files
func (m *Manager) Release(ws *Workspace) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.releaseLocked(ws)
}

func (m *Manager) releaseLocked(ws *Workspace) error {
	if ws.released {
		return ErrReleased
	}
	ws.released = true
	delete(m.workspaces, ws.ID)

	if err := os.RemoveAll(ws.Dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", ws.ID, err)
	}
	return nil
}

// Sweep removes untracked workspace directories older than maxAge, such as
// those left behind by a crashed run or a previous process. Workspaces still
// held by a caller are only removed by Release. It returns the number of
// directories removed.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	removed := 0
	var errs []error

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return removed, errors.Join(append(errs, fmt.Errorf("failed to list workspaces: %w", err))...)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, tracked := m.workspaces[entry.Name()]; tracked {
			continue
		}
		if uuid.Validate(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.RemoveAll(filepath.Join(m.baseDir, entry.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	return removed, errors.Join(errs...)
}

// Count returns the number of live workspaces
func (m *Manager) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.workspaces)
}
