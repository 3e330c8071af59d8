package workspace

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/errors"
)

// TrashDir is the folder, relative to the store root, that Trash moves
// files into.
const TrashDir = ".trash"

// DirStore is a Store backed by a directory on disk.
type DirStore struct {
	root string
	ext  string
}

// NewDirStore opens the directory at root. Only files ending in ext are
// listed; every file can still be read and written by path.
func NewDirStore(root, ext string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve vault root %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open vault root")
	}
	if !info.IsDir() {
		return nil, errors.New("vault root %s is not a directory", abs)
	}
	return &DirStore{root: abs, ext: ext}, nil
}

// Root returns the absolute vault directory.
func (s *DirStore) Root() string { return s.root }

// abs maps a store path to a file path, refusing anything outside the root.
func (s *DirStore) abs(p string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(p))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(errors.ErrAccessDenied, "path %s escapes the vault", p)
	}
	return full, nil
}

func (s *DirStore) ListPaths(ctx context.Context) ([]string, error) {
	rules := s.ignoreRules()
	var out []string
	err := doublestar.GlobWalk(os.DirFS(s.root), "**/*"+s.ext, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if inDir(p, TrashDir) || inDir(p, config.Dir) {
			return nil
		}
		if rules != nil && rules.MatchesPath(p) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not list vault")
	}
	sort.Strings(out)
	return out, nil
}

func inDir(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// ignoreRules reads .gitignore and .scribe/.ignore from the root.
func (s *DirStore) ignoreRules() *ignore.GitIgnore {
	var lines []string
	for _, name := range []string{".gitignore", path.Join(config.Dir, ".ignore")} {
		lines = append(lines, readLines(filepath.Join(s.root, filepath.FromSlash(name)))...)
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func readLines(file string) []string {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func (s *DirStore) Lookup(ctx context.Context, p string) (bool, error) {
	full, err := s.abs(p)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "lookup %s", p)
	}
	return !info.IsDir(), nil
}

func (s *DirStore) Read(ctx context.Context, p string) (string, error) {
	full, err := s.abs(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return "", errors.Wrapf(errors.ErrNotFound, "read %s", p)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", p)
	}
	return string(data), nil
}

func (s *DirStore) Create(ctx context.Context, p, content string) error {
	full, err := s.abs(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create %s", p)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return errors.Wrapf(err, "create %s", p)
	}
	return errors.Wrapf(f.Close(), "create %s", p)
}

func (s *DirStore) Write(ctx context.Context, p, content string) error {
	full, err := s.abs(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.Wrapf(err, "write %s", p)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", p)
	}
	return errors.Wrapf(f.Close(), "write %s", p)
}

func (s *DirStore) AppendTo(ctx context.Context, p, content string) error {
	full, err := s.abs(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return errors.Wrapf(err, "append %s", p)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return errors.Wrapf(err, "append %s", p)
	}
	return errors.Wrapf(f.Close(), "append %s", p)
}

// Trash moves p under TrashDir, keeping its folder structure. A name that
// is already taken in the trash gets a timestamp suffix.
func (s *DirStore) Trash(ctx context.Context, p string) error {
	full, err := s.abs(p)
	if err != nil {
		return err
	}
	dest := filepath.Join(s.root, TrashDir, filepath.FromSlash(p))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = fmt.Sprintf("%s.%s%s", strings.TrimSuffix(dest, ext), time.Now().Format("20060102-150405.000"), ext)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "trash %s", p)
	}
	return errors.Wrapf(os.Rename(full, dest), "trash %s", p)
}

func (s *DirStore) Rename(ctx context.Context, p, newPath string) error {
	from, err := s.abs(p)
	if err != nil {
		return err
	}
	to, err := s.abs(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(to); err == nil {
		return errors.New("rename %s: %s exists", p, newPath)
	}
	return errors.Wrapf(os.Rename(from, to), "rename %s", p)
}

func (s *DirStore) EnsureFolder(ctx context.Context, p string) error {
	full, err := s.abs(p)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.MkdirAll(full, 0o755), "create folder %s", p)
}
