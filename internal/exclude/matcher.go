// Package exclude implements ExclusionMatcher (spec.md §4.3): an
// ordered list of regex patterns parsed from a manifest, deciding
// whether an include reference may be cached.
package exclude

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"sync"
)

// Matcher holds a compiled, ordered pattern list. The zero value
// matches nothing, same as an empty (or all-comment) manifest.
//
// Reload (SPEC_FULL.md §12.5) swaps the compiled list behind a
// sync.RWMutex, the same guarded-pointer-swap shape the teacher uses
// in internal/rate_limit for replacing shared limiter state.
type Matcher struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
}

// New parses a manifest: one pattern per line, blank lines and lines
// starting with '#' ignored.
func New(manifest io.Reader) (*Matcher, error) {
	patterns, err := parseManifest(manifest)
	if err != nil {
		return nil, err
	}
	return &Matcher{patterns: patterns}, nil
}

// NewFromString is a convenience wrapper around New for literal
// manifests (tests, embedded defaults).
func NewFromString(manifest string) (*Matcher, error) {
	return New(strings.NewReader(manifest))
}

func parseManifest(r io.Reader) ([]*regexp.Regexp, error) {
	var patterns []*regexp.Regexp
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// IsExcluded reports whether any non-comment manifest pattern matches
// reference. Patterns are Go RE2 regexes used with MatchString
// (substring search): a manifest author wanting a full match must
// write `^…$` themselves, matching the anchored and unanchored
// patterns spec.md §9 observes in test manifests — see DESIGN.md's
// resolution of that Open Question.
func (m *Matcher) IsExcluded(reference string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patterns {
		if p.MatchString(reference) {
			return true
		}
	}
	return false
}

// Reload re-parses manifest and atomically replaces the pattern list.
func (m *Matcher) Reload(manifest io.Reader) error {
	patterns, err := parseManifest(manifest)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.patterns = patterns
	m.mu.Unlock()
	return nil
}
