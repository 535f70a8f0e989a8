package resolver_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txtasm/preproc/internal/afs"
	"github.com/txtasm/preproc/internal/cache"
	"github.com/txtasm/preproc/internal/exclude"
	"github.com/txtasm/preproc/internal/resolver"
)

type fakeReader struct {
	calls int
	body  []byte
	err   error
}

func (f *fakeReader) Read(reference string) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

func newResolver(t *testing.T, useCache bool, manifest string, fileR, httpR, githubR resolver.Reader) (*resolver.Resolver, *cache.FileCache) {
	t.Helper()
	m, err := exclude.NewFromString(manifest)
	require.NoError(t, err)
	c := cache.New(afs.NewMem(), "/cache", m, cache.Options{Logger: zerolog.Nop()})
	return resolver.New(c, fileR, httpR, githubR, resolver.Options{UseCache: useCache, Logger: zerolog.Nop()}), c
}

func TestCacheHitBypassWhenCacheDisabled(t *testing.T) {
	githubR := &fakeReader{body: []byte("fresh")}
	res, c := newResolver(t, false, "", &fakeReader{}, &fakeReader{}, githubR)

	require.NoError(t, c.Store("github:x/y/z.txt", []byte("cached")))

	got, err := res.Resolve("github:x/y/z.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
	assert.Equal(t, 1, githubR.calls)
}

func TestIncludePopulatesCache(t *testing.T) {
	httpR := &fakeReader{body: []byte("fetched")}
	res, c := newResolver(t, true, "", &fakeReader{}, httpR, &fakeReader{})

	got, err := res.Resolve("https://example/a.js")
	require.NoError(t, err)
	assert.Equal(t, []byte("fetched"), got)

	cached, ok, err := c.Find("https://example/a.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("fetched"), cached)
}

func TestExclusionPreventsCaching(t *testing.T) {
	httpR := &fakeReader{body: []byte("fetched")}
	res, c := newResolver(t, true, "^(.*)$", &fakeReader{}, httpR, &fakeReader{})

	_, err := res.Resolve("https://example/a.js")
	require.NoError(t, err)

	_, ok, err := c.Find("https://example/a.js")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitReferenceRejected(t *testing.T) {
	res, _ := newResolver(t, true, "", &fakeReader{}, &fakeReader{}, &fakeReader{})
	_, err := res.Resolve("vendor/repo.git/path")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrGitSourcesNotSupported))
}

func TestHTTPSchemeWinsOverGitSuffix(t *testing.T) {
	// classify checks the HTTP scheme before the .git rejection (spec.md
	// §4.4 step 1 is a strict if/elseif/else chain), so an https:// URL
	// that happens to contain ".git" is still treated as HTTP, not
	// rejected.
	httpR := &fakeReader{body: []byte("fetched")}
	res, _ := newResolver(t, false, "", &fakeReader{}, httpR, &fakeReader{})

	got, err := res.Resolve("https://example.com/repo.git/path")
	require.NoError(t, err)
	assert.Equal(t, []byte("fetched"), got)
}

func TestLocalFileNotCachedByDefault(t *testing.T) {
	fileR := &fakeReader{body: []byte("local")}
	res, c := newResolver(t, true, "", fileR, &fakeReader{}, &fakeReader{})

	_, err := res.Resolve("a/b/c.txt")
	require.NoError(t, err)

	_, ok, err := c.Find("a/b/c.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, fileR.calls)
}

func TestReaderErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	res, _ := newResolver(t, true, "", &fakeReader{err: wantErr}, &fakeReader{}, &fakeReader{})

	_, err := res.Resolve("a.txt")
	assert.ErrorIs(t, err, wantErr)
}

func TestGithubClassification(t *testing.T) {
	githubR := &fakeReader{body: []byte("gh")}
	res, _ := newResolver(t, false, "", &fakeReader{}, &fakeReader{}, githubR)

	got, err := res.Resolve("github:a/b/c.js")
	require.NoError(t, err)
	assert.Equal(t, []byte("gh"), got)
	assert.Equal(t, 1, githubR.calls)
}
