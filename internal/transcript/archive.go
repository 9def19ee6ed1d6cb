// Package transcript persists the conversations exchanged with the model,
// one file per schema category.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/checkaud/checkaud/internal/schema"
)

const separator = "# -------------------------------------------------- #"

// Archive is a caller-owned, append-only conversation log partitioned by
// schema category. Every Append is written through to disk immediately, so
// a crash loses nothing already recorded. Independent runs should each open
// their own Archive in their own directory.
type Archive struct {
	dir string

	mu    sync.Mutex
	files map[schema.Category]*os.File
}

// Open creates (if needed) the transcript directory and returns an Archive
// writing into it.
func Open(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating transcript directory: %w", err)
	}
	return &Archive{
		dir:   dir,
		files: make(map[schema.Category]*os.File),
	}, nil
}

// Append records one message in the bucket for cat. Entries from system
// roles are followed by a separator line, marking the end of a turn.
func (a *Archive) Append(cat schema.Category, role, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.file(cat)
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("%s: %s\n\n", role, content)
	if role == "system" {
		entry += separator + "\n\n"
	}
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("appending to transcript %s: %w", cat, err)
	}
	return nil
}

// Path returns the file a category is persisted to.
func (a *Archive) Path(cat schema.Category) string {
	return filepath.Join(a.dir, fmt.Sprintf("messages_%s.txt", cat))
}

// Close closes all open bucket files.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for cat, f := range a.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing transcript %s: %w", cat, err)
		}
		delete(a.files, cat)
	}
	return firstErr
}

func (a *Archive) file(cat schema.Category) (*os.File, error) {
	if cat == "" {
		cat = schema.CategoryUnclassified
	}
	if f, ok := a.files[cat]; ok {
		return f, nil
	}
	f, err := os.OpenFile(a.Path(cat), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening transcript %s: %w", cat, err)
	}
	a.files[cat] = f
	return f, nil
}
