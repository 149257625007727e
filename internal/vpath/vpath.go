// Package vpath implements abstract path values and modification-time
// queries for the driver: compilation inputs may be real files on disk, but
// tests and in-memory pipelines also need paths that carry their contents
// directly, without ever touching a filesystem.
package vpath

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Kind distinguishes the four ways a VirtualPath can be backed.
type Kind int

const (
	// Absolute is a path rooted at the filesystem root, resolved and
	// stat'd against the real filesystem.
	Absolute Kind = iota
	// Relative is resolved against a base directory supplied by the
	// caller at query time (the driver's working directory).
	Relative
	// Temporary names a path that exists on disk but is understood to be
	// scratch output, not a tracked input; mtime queries still hit disk.
	Temporary
	// TemporaryWithContents carries its bytes directly and never touches
	// the filesystem; ModTime returns a caller-supplied logical
	// timestamp instead of a stat result.
	TemporaryWithContents
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case Temporary:
		return "temporary"
	case TemporaryWithContents:
		return "temporary-with-contents"
	default:
		return "unknown"
	}
}

// VirtualPath is an abstract path value: one of the four Kinds above.
type VirtualPath struct {
	kind     Kind
	path     string
	contents []byte
	logical  time.Time
}

// NewAbsolute wraps an absolute filesystem path.
func NewAbsolute(path string) VirtualPath {
	return VirtualPath{kind: Absolute, path: path}
}

// NewRelative wraps a path to be resolved against a base directory later.
func NewRelative(path string) VirtualPath {
	return VirtualPath{kind: Relative, path: path}
}

// NewTemporary wraps a path to scratch output that exists on disk.
func NewTemporary(path string) VirtualPath {
	return VirtualPath{kind: Temporary, path: path}
}

// NewTemporaryWithContents wraps an in-memory path: contents is what a
// reader gets instead of a file open, and logical is what ModTime reports.
func NewTemporaryWithContents(name string, contents []byte, logical time.Time) VirtualPath {
	return VirtualPath{kind: TemporaryWithContents, path: name, contents: contents, logical: logical}
}

// Kind reports how the path is backed.
func (p VirtualPath) Kind() Kind { return p.kind }

// Raw returns the path string as given at construction (unresolved for
// Relative paths).
func (p VirtualPath) Raw() string { return p.path }

// Contents returns the in-memory bytes for a TemporaryWithContents path and
// true, or nil and false for any other kind.
func (p VirtualPath) Contents() ([]byte, bool) {
	if p.kind != TemporaryWithContents {
		return nil, false
	}
	return p.contents, true
}

// Resolve returns the path usable for filesystem operations: Relative
// paths are joined against base; all other kinds ignore base.
func (p VirtualPath) Resolve(base string) string {
	if p.kind == Relative && !filepath.IsAbs(p.path) {
		return filepath.Join(base, p.path)
	}
	return p.path
}

// ModTime returns the path's modification time: a stat result for
// Absolute/Relative/Temporary paths (resolved against base), or the
// caller-supplied logical timestamp for TemporaryWithContents.
func (p VirtualPath) ModTime(base string) (time.Time, error) {
	if p.kind == TemporaryWithContents {
		return p.logical, nil
	}
	resolved := p.Resolve(base)
	info, err := os.Stat(resolved)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", resolved, err)
	}
	return info.ModTime(), nil
}

// Exists reports whether the path currently resolves to something the
// filesystem (or, for TemporaryWithContents, the in-memory contents) can
// produce.
func (p VirtualPath) Exists(base string) bool {
	if p.kind == TemporaryWithContents {
		return true
	}
	_, err := os.Stat(p.Resolve(base))
	return err == nil
}

// FileInfo is the subset of fs.FileInfo the driver actually consults,
// narrowed so in-memory paths can satisfy it without a real os.FileInfo.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// Stat resolves a VirtualPath to a FileInfo, synthesizing one for
// TemporaryWithContents paths instead of touching the filesystem.
func Stat(p VirtualPath, base string) (FileInfo, error) {
	if p.kind == TemporaryWithContents {
		return FileInfo{
			Path:    p.path,
			Size:    int64(len(p.contents)),
			ModTime: p.logical,
			Mode:    0,
		}, nil
	}
	resolved := p.Resolve(base)
	info, err := os.Stat(resolved)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", resolved, err)
	}
	return FileInfo{Path: resolved, Size: info.Size(), ModTime: info.ModTime(), Mode: info.Mode()}, nil
}

// CanonicalName returns the name used as the SourceFileProvide designator
// for this path: the whole path as given, cleaned with filepath.Clean (so
// a "./" prefix or a doubled separator is removed). It is not reduced to
// its base name and symlinks are not resolved.
func CanonicalName(p VirtualPath) string {
	if p.kind == TemporaryWithContents {
		return filepath.Clean(p.path)
	}
	return filepath.Clean(p.path)
}
