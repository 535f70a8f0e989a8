// Package cachestats persists FileCache hit/miss/store counters across
// process restarts, keyed by cache directory. Grounded in the
// teacher's internal/filekv: a small bbolt-backed side-store sitting
// next to the primary storage engine rather than inside it (spec.md's
// CacheEntry explicitly carries no metadata sidecar, so these counters
// live in their own bucket, never touching the cache directory's
// content files).
package cachestats

import (
	"encoding/binary"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("cachestats")

// Store wraps a single bbolt database file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Counters is a snapshot of the hit/miss/store counts for one cache
// directory.
type Counters struct {
	Hits   uint64
	Misses uint64
	Stores uint64
}

func (s *Store) RecordHit(cacheDir string) { s.increment(cacheDir, 0) }

func (s *Store) RecordMiss(cacheDir string) { s.increment(cacheDir, 1) }

func (s *Store) RecordStore(cacheDir string) { s.increment(cacheDir, 2) }

func (s *Store) increment(cacheDir string, field int) {
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		key := []byte(cacheDir)
		counters := decode(b.Get(key))
		switch field {
		case 0:
			counters.Hits++
		case 1:
			counters.Misses++
		case 2:
			counters.Stores++
		}
		return b.Put(key, encode(counters))
	})
}

// Get returns the current counters for cacheDir.
func (s *Store) Get(cacheDir string) (Counters, error) {
	var out Counters
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		out = decode(b.Get([]byte(cacheDir)))
		return nil
	})
	return out, err
}

func encode(c Counters) []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], c.Hits)
	binary.BigEndian.PutUint64(buf[8:16], c.Misses)
	binary.BigEndian.PutUint64(buf[16:24], c.Stores)
	return buf
}

func decode(buf []byte) Counters {
	if len(buf) != 24 {
		return Counters{}
	}
	return Counters{
		Hits:   binary.BigEndian.Uint64(buf[0:8]),
		Misses: binary.BigEndian.Uint64(buf[8:16]),
		Stores: binary.BigEndian.Uint64(buf[16:24]),
	}
}
