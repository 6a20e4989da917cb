package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TransientStore holds files that live for the duration of a single request.
// Every file gets a request-unique name and is tracked until removed, so that
// anything left behind can be swept at shutdown.
type TransientStore struct {
	dir  string
	live map[string]struct{}
	mu   sync.RWMutex
}

func New(dir string) (*TransientStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transient directory: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid transient directory: %w", err)
	}
	return &TransientStore{
		dir:  absDir,
		live: make(map[string]struct{}),
	}, nil
}

// Dir returns the absolute directory the store writes to.
func (s *TransientStore) Dir() string {
	return s.dir
}

// Create writes data to a new file named <prefix>_<uuid><ext> and returns
// its path.
func (s *TransientStore) Create(prefix, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("Failed to close file after write error", "path", path, "error", cerr)
		}
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("Failed to remove file after write error", "path", path, "error", rerr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("Failed to remove file after close error", "path", path, "error", rerr)
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	s.mu.Lock()
	s.live[path] = struct{}{}
	s.mu.Unlock()

	slog.Debug("Transient file saved", "path", path, "bytes", len(data))
	return path, nil
}

// ReadFile returns the contents of a file inside the store.
func (s *TransientStore) ReadFile(path string) ([]byte, error) {
	p, err := s.safePath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Exists reports whether path names an existing file inside the store.
func (s *TransientStore) Exists(path string) bool {
	p, err := s.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes a file. Removing a file that no longer exists is not an
// error.
func (s *TransientStore) Remove(path string) error {
	p, err := s.safePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.live, p)
	s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Live returns the tracked files that have not been removed yet, sorted.
func (s *TransientStore) Live() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.live))
	for p := range s.live {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sweep removes every tracked file and returns how many were deleted.
func (s *TransientStore) Sweep() int {
	removed := 0
	for _, p := range s.Live() {
		if err := s.Remove(p); err != nil {
			slog.Error("Failed to sweep transient file", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// safePath resolves path and rejects anything outside the store directory.
func (s *TransientStore) safePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("path outside transient directory: %s", path)
	}
	return absPath, nil
}
