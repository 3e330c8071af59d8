package workspace

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/parser"
)

// Executor applies parsed actions to a Store.
//
// Expected failures (missing file, existing file, missing rename target)
// come back as result messages so that one bad action never stops the rest
// of a batch. Only store errors are returned as errors.
type Executor struct {
	store  Store
	ext    string
	logger *zap.Logger
}

// NewExecutor creates an executor. ext is the document extension tried when
// a path is written without one.
func NewExecutor(store Store, ext string, logger *zap.Logger) *Executor {
	return &Executor{
		store:  store,
		ext:    ext,
		logger: logging.OrNop(logger).Named("executor"),
	}
}

// Store returns the store actions are applied to.
func (e *Executor) Store() Store { return e.store }

// Resolve finds the stored file an assistant meant by p. It tries the exact
// path, then p with the document extension, then the first file whose name
// matches p's name case-insensitively. The assistant often refers to a note
// by its title rather than its full path.
func (e *Executor) Resolve(ctx context.Context, p string) (string, bool, error) {
	if ok, err := e.store.Lookup(ctx, p); err != nil || ok {
		return p, ok, err
	}
	if e.ext != "" && !strings.HasSuffix(strings.ToLower(p), strings.ToLower(e.ext)) {
		withExt := p + e.ext
		if ok, err := e.store.Lookup(ctx, withExt); err != nil || ok {
			return withExt, ok, err
		}
	}

	paths, err := e.store.ListPaths(ctx)
	if err != nil {
		return "", false, err
	}
	want := stem(p, e.ext)
	for _, candidate := range paths {
		if stem(candidate, e.ext) == want {
			e.logger.Debug("resolved by name", zap.String("path", p), zap.String("match", candidate))
			return candidate, true, nil
		}
	}
	return "", false, nil
}

// Apply performs one action and describes the outcome.
func (e *Executor) Apply(ctx context.Context, a parser.Action) (string, error) {
	e.logger.Info("applying action", zap.String("action", a.Label()))
	switch a.Kind {
	case parser.KindCreate:
		return e.create(ctx, a)
	case parser.KindEdit:
		return e.edit(ctx, a)
	case parser.KindAppend:
		return e.append(ctx, a)
	case parser.KindDelete:
		return e.delete(ctx, a)
	case parser.KindRename:
		return e.rename(ctx, a)
	}
	return fmt.Sprintf("Unknown action: %s", a.Kind), nil
}

func (e *Executor) create(ctx context.Context, a parser.Action) (string, error) {
	existing, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if found {
		return fmt.Sprintf("File already exists: %s", existing), nil
	}
	if dir := parentDir(a.Path); dir != "" {
		if err := e.store.EnsureFolder(ctx, dir); err != nil {
			return "", err
		}
	}
	if err := e.store.Create(ctx, a.Path, a.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created: %s", a.Path), nil
}

func (e *Executor) edit(ctx context.Context, a parser.Action) (string, error) {
	target, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("File not found: %s", a.Path), nil
	}
	if err := e.store.Write(ctx, target, a.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Edited: %s", target), nil
}

func (e *Executor) append(ctx context.Context, a parser.Action) (string, error) {
	target, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("File not found: %s", a.Path), nil
	}
	if err := e.store.AppendTo(ctx, target, "\n"+a.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Appended to: %s", target), nil
}

func (e *Executor) delete(ctx context.Context, a parser.Action) (string, error) {
	target, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("File not found: %s", a.Path), nil
	}
	if err := e.store.Trash(ctx, target); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved to trash: %s", target), nil
}

func (e *Executor) rename(ctx context.Context, a parser.Action) (string, error) {
	if a.NewPath == "" {
		return fmt.Sprintf("Rename failed: no target path given for %s", a.Path), nil
	}
	target, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("File not found: %s", a.Path), nil
	}
	if exists, err := e.store.Lookup(ctx, a.NewPath); err != nil {
		return "", err
	} else if exists {
		return fmt.Sprintf("Rename failed: %s already exists", a.NewPath), nil
	}
	if dir := parentDir(a.NewPath); dir != "" {
		if err := e.store.EnsureFolder(ctx, dir); err != nil {
			return "", err
		}
	}
	if err := e.store.Rename(ctx, target, a.NewPath); err != nil {
		return "", err
	}
	return fmt.Sprintf("Renamed: %s -> %s", target, a.NewPath), nil
}

// FailureMessage is the result reported for an action whose execution
// returned an error.
func FailureMessage(a parser.Action, err error) string {
	return fmt.Sprintf("Failed: %s - %v", a.Label(), err)
}

// ApplySafely runs Apply and folds an error into a failure message. The
// flag is false when Apply returned an error.
func (e *Executor) ApplySafely(ctx context.Context, a parser.Action) (string, bool) {
	msg, err := e.Apply(ctx, a)
	if err != nil {
		e.logger.Warn("action failed", zap.String("action", a.Label()), zap.Error(err))
		return FailureMessage(a, err), false
	}
	return msg, true
}
