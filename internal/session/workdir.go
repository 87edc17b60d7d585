// ABOUTME: Session-scoped working directory for transient artifacts
// ABOUTME: Created once per playback session and removed exactly once at teardown
package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workdir holds the transient files of one playback session
type Workdir struct {
	id   uuid.UUID
	path string

	closeOnce sync.Once
	closeErr  error
}

// NewWorkdir creates a fresh directory under base, or under the system
// temp directory when base is empty
func NewWorkdir(base string) (*Workdir, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory base: %w", err)
	}

	id := uuid.New()
	path := filepath.Join(base, "termvid-"+id.String())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	log.Printf("Created session directory %s", path)

	return &Workdir{id: id, path: path}, nil
}

// ID returns the session identifier
func (w *Workdir) ID() uuid.UUID {
	return w.id
}

// Path returns the directory path
func (w *Workdir) Path() string {
	return w.path
}

// Artifact returns the path for a named file inside the directory
func (w *Workdir) Artifact(name string) string {
	return filepath.Join(w.path, filepath.Base(name))
}

// Close removes the directory and everything in it. Only the first call
// has an effect.
func (w *Workdir) Close() error {
	w.closeOnce.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			w.closeErr = fmt.Errorf("failed to remove session directory: %w", err)
			return
		}
		log.Printf("Removed session directory %s", w.path)
	})
	return w.closeErr
}
