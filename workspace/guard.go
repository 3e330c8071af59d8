package workspace

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/errors"
)

// Guard enforces the configured filesystem access rules on top of a Store.
// Hidden paths do not exist as far as the assistant can tell; read-only
// paths can be read but not changed.
type Guard struct {
	store  Store
	access config.FilesystemAccess
}

// NewGuard validates the glob patterns and wraps store.
func NewGuard(store Store, access config.FilesystemAccess) (*Guard, error) {
	for _, pattern := range append(append([]string{}, access.Hidden...), access.ReadOnly...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.New("invalid glob pattern '%s'", pattern)
		}
	}
	return &Guard{store: store, access: access}, nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(p string, patterns []string) bool {
	for _, pattern := range patterns {
		// Patterns were validated in NewGuard, so the error is always nil.
		if match, _ := doublestar.Match(pattern, p); match {
			return true
		}
	}
	return false
}

func (g *Guard) hidden(p string) bool { return isPathRestricted(p, g.access.Hidden) }

func (g *Guard) checkWritable(p string) error {
	if g.hidden(p) {
		return errors.Wrapf(errors.ErrAccessDenied, "path '%s' is hidden", p)
	}
	if isPathRestricted(p, g.access.ReadOnly) {
		return errors.Wrapf(errors.ErrAccessDenied, "path '%s' is read-only", p)
	}
	return nil
}

func (g *Guard) ListPaths(ctx context.Context) ([]string, error) {
	paths, err := g.store.ListPaths(ctx)
	if err != nil {
		return nil, err
	}
	out := paths[:0:0]
	for _, p := range paths {
		if !g.hidden(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *Guard) Lookup(ctx context.Context, p string) (bool, error) {
	if g.hidden(p) {
		return false, nil
	}
	return g.store.Lookup(ctx, p)
}

func (g *Guard) Read(ctx context.Context, p string) (string, error) {
	if g.hidden(p) {
		return "", errors.Wrapf(errors.ErrNotFound, "read %s", p)
	}
	return g.store.Read(ctx, p)
}

func (g *Guard) Create(ctx context.Context, p, content string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	return g.store.Create(ctx, p, content)
}

func (g *Guard) Write(ctx context.Context, p, content string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	return g.store.Write(ctx, p, content)
}

func (g *Guard) AppendTo(ctx context.Context, p, content string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	return g.store.AppendTo(ctx, p, content)
}

func (g *Guard) Trash(ctx context.Context, p string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	return g.store.Trash(ctx, p)
}

func (g *Guard) Rename(ctx context.Context, p, newPath string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	if err := g.checkWritable(newPath); err != nil {
		return err
	}
	return g.store.Rename(ctx, p, newPath)
}

func (g *Guard) EnsureFolder(ctx context.Context, p string) error {
	if err := g.checkWritable(p); err != nil {
		return err
	}
	return g.store.EnsureFolder(ctx, p)
}
