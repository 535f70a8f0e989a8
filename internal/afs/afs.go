// Package afs provides the filesystem abstraction FileCache is built
// on: a go-billy Filesystem plus an Absolute helper, so the cache can
// run against the real OS filesystem in production and an in-memory
// one in tests without any code in internal/cache knowing the
// difference. Adapted from the teacher's internal/afs, trimmed to the
// two concrete filesystems this module actually needs.
package afs

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// Filesystem is a billy.Filesystem that can also resolve a path to an
// absolute one. FileCache's temp-file-then-rename writes (spec.md §5)
// use only the billy.Filesystem methods, not Absolute.
type Filesystem interface {
	billy.Filesystem
	Absolute(path string) (string, error)
}

type osFilesystem struct {
	billy.Filesystem
}

// NewOS returns a Filesystem rooted at the OS filesystem, unchrooted
// (absolute paths pass through as-is).
func NewOS() Filesystem {
	return &osFilesystem{Filesystem: osfs.New("", osfs.WithBoundOS())}
}

func (fs *osFilesystem) Absolute(path string) (string, error) {
	return filepath.Abs(path)
}

type memFilesystem struct {
	billy.Filesystem
}

// NewMem returns an in-memory Filesystem, for tests and for cache
// directories that should not touch disk.
func NewMem() Filesystem {
	return &memFilesystem{Filesystem: memfs.New()}
}

func (fs *memFilesystem) Absolute(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return "/" + path, nil
}
