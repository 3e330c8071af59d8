package workspace

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m4xw311/scribe/errors"
)

// MemStore is an in-memory Store. Folders must exist before files are
// created in them, mirroring a real vault.
type MemStore struct {
	mu      sync.Mutex
	files   map[string]string
	folders map[string]bool
	trashed map[string]string
}

// NewMemStore returns a store holding files, creating their folders.
func NewMemStore(files map[string]string) *MemStore {
	s := &MemStore{
		files:   make(map[string]string),
		folders: make(map[string]bool),
		trashed: make(map[string]string),
	}
	for p, content := range files {
		s.files[p] = content
		s.addFolders(parentDir(p))
	}
	return s
}

func (s *MemStore) addFolders(dir string) {
	for dir != "" {
		s.folders[dir] = true
		dir = parentDir(dir)
	}
}

func (s *MemStore) ListPaths(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) Lookup(ctx context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[p]
	return ok, nil
}

func (s *MemStore) Read(ctx context.Context, p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[p]
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "read %s", p)
	}
	return content, nil
}

func (s *MemStore) Create(ctx context.Context, p, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; ok {
		return errors.New("create %s: file exists", p)
	}
	if dir := parentDir(p); dir != "" && !s.folders[dir] {
		return errors.Wrapf(errors.ErrNotFound, "create %s: folder %s", p, dir)
	}
	s.files[p] = content
	return nil
}

func (s *MemStore) Write(ctx context.Context, p, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "write %s", p)
	}
	s.files[p] = content
	return nil
}

func (s *MemStore) AppendTo(ctx context.Context, p, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.files[p]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "append %s", p)
	}
	s.files[p] = existing + content
	return nil
}

func (s *MemStore) Trash(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[p]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "trash %s", p)
	}
	delete(s.files, p)
	s.trashed[p] = content
	return nil
}

func (s *MemStore) Rename(ctx context.Context, p, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[p]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "rename %s", p)
	}
	if _, exists := s.files[newPath]; exists {
		return errors.New("rename %s: %s exists", p, newPath)
	}
	if dir := parentDir(newPath); dir != "" && !s.folders[dir] {
		return errors.Wrapf(errors.ErrNotFound, "rename %s: folder %s", p, dir)
	}
	delete(s.files, p)
	s.files[newPath] = content
	return nil
}

func (s *MemStore) EnsureFolder(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFolders(strings.Trim(p, "/"))
	return nil
}

// Trashed returns the content of a trashed file.
func (s *MemStore) Trashed(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.trashed[p]
	return content, ok
}
