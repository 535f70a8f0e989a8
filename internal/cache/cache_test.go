package cache_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txtasm/preproc/internal/afs"
	"github.com/txtasm/preproc/internal/cache"
	"github.com/txtasm/preproc/internal/exclude"
)

func newCache(t *testing.T, opts cache.Options) *cache.FileCache {
	t.Helper()
	m, err := exclude.NewFromString("")
	require.NoError(t, err)
	opts.Logger = zerolog.Nop()
	return cache.New(afs.NewMem(), "/cache", m, opts)
}

func TestStoreFindRoundTrip(t *testing.T) {
	c := newCache(t, cache.Options{})

	require.NoError(t, c.Store("github:x/y/z.txt", []byte("cached")))

	body, ok, err := c.Find("github:x/y/z.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("cached"), body)
}

func TestFindMissReturnsFalse(t *testing.T) {
	c := newCache(t, cache.Options{})

	body, ok, err := c.Find("https://example.com/nope.js")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, body)
}

func TestClearRemovesEntries(t *testing.T) {
	c := newCache(t, cache.Options{})

	require.NoError(t, c.Store("a.js", []byte("x")))
	require.NoError(t, c.Clear())

	_, ok, err := c.Find("a.js")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompressionRoundTrip(t *testing.T) {
	c := newCache(t, cache.Options{Compression: true})

	body := []byte("the quick brown fox jumps over the lazy dog, repeatedly, for compressibility")
	require.NoError(t, c.Store("a.js", body))

	got, ok, err := c.Find("a.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, got)
}

func TestIsExcludedDelegatesToMatcher(t *testing.T) {
	m, err := exclude.NewFromString("^(.*)$")
	require.NoError(t, err)
	c := cache.New(afs.NewMem(), "/cache", m, cache.Options{Logger: zerolog.Nop()})

	assert.True(t, c.IsExcluded("anything"))
}

func TestCachedPathDoesNotTouchDisk(t *testing.T) {
	c := newCache(t, cache.Options{})
	path := c.CachedPath("a.js")
	assert.NotEmpty(t, path)

	_, ok, err := c.Find("a.js")
	require.NoError(t, err)
	assert.False(t, ok)
}
