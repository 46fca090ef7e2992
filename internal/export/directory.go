package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"epochcap/internal/faults"
	"epochcap/internal/fileutil"
	"epochcap/internal/textutil"
)

// Entry is one item returned by Directory.List.
type Entry struct {
	Name string
	Dir  bool
}

// Directory is a writable folder handle.
type Directory interface {
	Name() string
	List(ctx context.Context) ([]Entry, error)
	Open(ctx context.Context, name string) (io.ReadSeekCloser, error)
	Subdirectory(ctx context.Context, name string) (Directory, error)
	// WriteFile stores data under name and returns the written location.
	WriteFile(ctx context.Context, name string, data []byte) (string, error)
}

// OSDirectory is a Directory backed by the local filesystem.
type OSDirectory struct {
	path string
}

// NewOSDirectory returns a handle for an existing directory.
func NewOSDirectory(path string) (*OSDirectory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, faults.Wrap(faults.ErrNoDirectory, "export", "open directory", "path is empty", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrNoDirectory, "export", "open directory", path, err)
	}
	if !fileutil.DirExists(abs) {
		return nil, faults.Wrap(faults.ErrNoDirectory, "export", "open directory", abs+" is not a directory", nil)
	}
	return &OSDirectory{path: abs}, nil
}

// EnsureOSDirectory creates path if needed and returns a handle for it.
func EnsureOSDirectory(path string) (*OSDirectory, error) {
	if strings.TrimSpace(path) != "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, faults.Wrap(faults.ErrNoDirectory, "export", "create directory", path, err)
		}
	}
	return NewOSDirectory(path)
}

// Missing reports whether dir is absent, including a nil *OSDirectory
// stored in a non-nil interface.
func Missing(dir Directory) bool {
	if dir == nil {
		return true
	}
	d, ok := dir.(*OSDirectory)
	return ok && d == nil
}

func errMissingDirectory(op string) error {
	return faults.Wrap(faults.ErrNoDirectory, "export", op, "no directory selected", nil)
}

func (d *OSDirectory) Name() string {
	if d == nil {
		return ""
	}
	return filepath.Base(d.path)
}

// Path returns the absolute directory path.
func (d *OSDirectory) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

func (d *OSDirectory) List(ctx context.Context) ([]Entry, error) {
	if d == nil {
		return nil, errMissingDirectory("list")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := os.ReadDir(d.path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrEnumeration, "export", "list", d.path, err)
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{Name: item.Name(), Dir: item.IsDir()})
	}
	return entries, nil
}

func (d *OSDirectory) Open(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	if d == nil {
		return nil, errMissingDirectory("open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.child(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Subdirectory creates (or reuses) a child folder. The name is sanitized
// before use.
func (d *OSDirectory) Subdirectory(ctx context.Context, name string) (Directory, error) {
	if d == nil {
		return nil, errMissingDirectory("create subdirectory")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.child(textutil.SanitizeFileName(name))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrExportWrite, "export", "create subdirectory", path, err)
	}
	return &OSDirectory{path: path}, nil
}

func (d *OSDirectory) WriteFile(ctx context.Context, name string, data []byte) (string, error) {
	if d == nil {
		return "", errMissingDirectory("write")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := d.child(name)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", faults.Wrap(faults.ErrExportWrite, "export", "write", path, err)
	}
	return path, nil
}

func (d *OSDirectory) child(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", faults.Wrap(faults.ErrInvalidInput, "export", "resolve name", fmt.Sprintf("unsafe file name %q", name), nil)
	}
	return filepath.Join(d.path, name), nil
}
