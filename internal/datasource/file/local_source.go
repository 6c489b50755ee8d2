// Package file implements local filesystem sources for sheet exports.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadName is returned for dataset names that would escape the directory.
var ErrBadName = errors.New("file: invalid dataset name")

// Local opens a single file from disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open returns the context error without touching the filesystem when ctx
// is already done. Filesystem errors are wrapped with the path and still
// match errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Dir maps dataset names onto files "<root>/<name><ext>".
type Dir struct {
	root string
	ext  string
}

// NewDir returns a Dir. ext defaults to ".csv".
func NewDir(root, ext string) *Dir {
	if ext == "" {
		ext = ".csv"
	}
	return &Dir{root: root, ext: ext}
}

// Source returns the Local for dataset. Names containing path separators or
// "..", and empty names, are rejected.
func (d *Dir) Source(dataset string) (*Local, error) {
	if dataset == "" || dataset == "." || strings.Contains(dataset, "..") || strings.ContainsAny(dataset, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrBadName, dataset)
	}
	return NewLocal(filepath.Join(d.root, dataset+d.ext)), nil
}
