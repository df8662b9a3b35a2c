package printing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Temp file extensions by payload kind.
const (
	ExtRaw   = "bin"
	ExtLabel = "lbl"
	ExtPDF   = "pdf"
)

// WithTempFile writes data to a collision-resistant temp file, runs fn with
// its path, and removes the file on every exit path. The file must not
// outlive fn: print submissions read it synchronously.
func WithTempFile(dir, ext string, data []byte, fn func(path string) error) error {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("agent-print-%s.%s", uuid.New().String(), ext))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	defer os.Remove(path)

	return fn(path)
}
