package exclude

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyManifestMatchesNothing(t *testing.T) {
	m, err := NewFromString("")
	require.NoError(t, err)
	assert.False(t, m.IsExcluded("anything"))
}

func TestAllCommentManifestMatchesNothing(t *testing.T) {
	m, err := NewFromString("# just a comment\n\n# another\n")
	require.NoError(t, err)
	assert.False(t, m.IsExcluded("anything"))
}

func TestCommentAndBlankLinesIgnored(t *testing.T) {
	m, err := NewFromString("# comment\n\nsecret\n")
	require.NoError(t, err)
	assert.True(t, m.IsExcluded("a-secret-ref"))
	assert.False(t, m.IsExcluded("# comment"))
}

func TestAnchoredAndUnanchoredPatterns(t *testing.T) {
	m, err := NewFromString("^https://internal\\.example\\.com/.*$\nsecret")
	require.NoError(t, err)

	assert.True(t, m.IsExcluded("https://internal.example.com/a.js"))
	assert.False(t, m.IsExcluded("https://example.com/internal.example.com"))
	assert.True(t, m.IsExcluded("github:a/secret-repo/b.js"))
}

func TestMatchAllPattern(t *testing.T) {
	m, err := NewFromString("^(.*)$")
	require.NoError(t, err)
	assert.True(t, m.IsExcluded("github:x/y/z.txt"))
	assert.True(t, m.IsExcluded(""))
}

func TestReload(t *testing.T) {
	m, err := NewFromString("foo")
	require.NoError(t, err)
	assert.True(t, m.IsExcluded("foo-ref"))
	assert.False(t, m.IsExcluded("bar-ref"))

	require.NoError(t, m.Reload(strings.NewReader("bar")))
	assert.False(t, m.IsExcluded("foo-ref"))
	assert.True(t, m.IsExcluded("bar-ref"))
}

func TestInvalidPatternErrors(t *testing.T) {
	_, err := NewFromString("(unclosed")
	assert.Error(t, err)
}
