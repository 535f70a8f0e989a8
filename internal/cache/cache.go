// Package cache implements FileCache (spec.md §4.4): a read-through,
// collision-free, on-disk store for fetched include content, gated by
// an ExclusionMatcher.
package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/txtasm/preproc/internal/afs"
	"github.com/txtasm/preproc/internal/cachestats"
	"github.com/txtasm/preproc/internal/exclude"
	"github.com/txtasm/preproc/internal/fingerprint"
)

// Options configures a FileCache.
type Options struct {
	// Compression stores cache entries zstd-compressed at rest
	// (SPEC_FULL.md §11); Find transparently decompresses, so
	// store/find round-trips byte-for-byte regardless of the setting.
	Compression bool

	// Stats, if non-nil, records hit/miss/store counters that survive
	// process restarts (SPEC_FULL.md §12.3).
	Stats *cachestats.Store

	Logger zerolog.Logger
}

// FileCache owns a cache directory on fs and consults exclusion before
// ever writing to it.
type FileCache struct {
	fs        afs.Filesystem
	dir       string
	exclusion *exclude.Matcher
	opts      Options
}

func New(fls afs.Filesystem, dir string, exclusion *exclude.Matcher, opts Options) *FileCache {
	return &FileCache{fs: fls, dir: dir, exclusion: exclusion, opts: opts}
}

// IsExcluded delegates to the ExclusionMatcher.
func (c *FileCache) IsExcluded(reference string) bool {
	if c.exclusion == nil {
		return false
	}
	return c.exclusion.IsExcluded(reference)
}

// CachedPath returns the fingerprint path for reference without
// touching disk.
func (c *FileCache) CachedPath(reference string) string {
	return c.fs.Join(c.dir, fingerprint.Compute(reference).Path)
}

// Find returns the cached body for reference, or (nil, false, nil) on
// a cache miss.
func (c *FileCache) Find(reference string) ([]byte, bool, error) {
	path := c.CachedPath(reference)

	f, err := c.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.recordMiss()
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}

	body, err := c.decompress(raw)
	if err != nil {
		return nil, false, err
	}

	c.opts.Logger.Debug().Str("reference", reference).Str("path", path).Msg("cache hit")
	c.recordHit()
	return body, true, nil
}

// Store writes body at reference's fingerprint path, creating the
// cache directory lazily. The write is atomic: content lands in a
// uuid-suffixed temp file first, then is renamed into place, so a
// concurrent reader (spec §5: "single-writer usage per directory" is
// assumed, but readers are not) never observes a partial file.
func (c *FileCache) Store(reference string, body []byte) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	payload, err := c.compress(body)
	if err != nil {
		return err
	}

	tmpPath := c.fs.Join(c.dir, fmt.Sprintf(".tmp-%s", uuid.NewString()))
	tmp, err := c.fs.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		c.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		c.fs.Remove(tmpPath)
		return err
	}

	finalPath := c.CachedPath(reference)
	if err := c.fs.Rename(tmpPath, finalPath); err != nil {
		c.fs.Remove(tmpPath)
		return err
	}

	c.opts.Logger.Debug().Str("reference", reference).Str("path", finalPath).Msg("cache store")
	c.recordStore()
	return nil
}

// Clear removes the cache directory recursively.
func (c *FileCache) Clear() error {
	return removeAll(c.fs, c.dir)
}

func removeAll(fls afs.Filesystem, dir string) error {
	entries, err := fls.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		child := fls.Join(dir, e.Name())
		if e.IsDir() {
			if err := removeAll(fls, child); err != nil {
				return err
			}
			continue
		}
		if err := fls.Remove(child); err != nil {
			return err
		}
	}
	return fls.Remove(dir)
}

func (c *FileCache) compress(body []byte) ([]byte, error) {
	if !c.opts.Compression {
		return body, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(body, nil), nil
}

func (c *FileCache) decompress(raw []byte) ([]byte, error) {
	if !c.opts.Compression {
		return raw, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func (c *FileCache) recordHit() {
	if c.opts.Stats != nil {
		c.opts.Stats.RecordHit(c.dir)
	}
}

func (c *FileCache) recordMiss() {
	if c.opts.Stats != nil {
		c.opts.Stats.RecordMiss(c.dir)
	}
}

func (c *FileCache) recordStore() {
	if c.opts.Stats != nil {
		c.opts.Stats.RecordStore(c.dir)
	}
}
