// Package workspace applies assistant actions to a hierarchical document
// store ("vault").
//
// The Store interface is the only thing the rest of scribe knows about the
// host's files. DirStore backs it with a directory on disk, MemStore with a
// map, and Guard layers the configured hidden and read-only globs on top of
// either. Executor resolves loosely written paths and turns parsed actions
// into store mutations.
package workspace

import (
	"context"
	"path"
	"strings"
)

// Store is the document collection the assistant can inspect and mutate.
// Paths are slash separated and relative to the store root.
type Store interface {
	// ListPaths returns every document path in a stable order.
	ListPaths(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, p string) (bool, error)
	Read(ctx context.Context, p string) (string, error)
	// Create fails if p exists or its parent folder does not.
	Create(ctx context.Context, p, content string) error
	Write(ctx context.Context, p, content string) error
	AppendTo(ctx context.Context, p, content string) error
	// Trash moves p somewhere it can be recovered from.
	Trash(ctx context.Context, p string) error
	Rename(ctx context.Context, p, newPath string) error
	EnsureFolder(ctx context.Context, p string) error
}

// parentDir returns the folder holding p, or "" for the root.
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// stem is the lower-cased file name without ext.
func stem(p, ext string) string {
	base := strings.ToLower(path.Base(p))
	if ext != "" {
		base = strings.TrimSuffix(base, strings.ToLower(ext))
	}
	return base
}
