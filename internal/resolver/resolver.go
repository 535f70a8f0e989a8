// Package resolver implements IncludeResolver (spec.md §4.4): reference
// classification, read-through caching, and delegation to a Reader
// keyed by scheme.
package resolver

import (
	"errors"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/txtasm/preproc/internal/cache"
)

// ErrGitSourcesNotSupported is the hard error for any reference
// containing ".git" as a word boundary (spec.md §4.4 step 1).
var ErrGitSourcesNotSupported = errors.New("GIT sources are not supported")

// Reader fetches the raw bytes a reference points to. Keyed by scheme,
// not dynamic method lookup (spec.md §9 "Readers as a capability
// set").
type Reader interface {
	Read(reference string) ([]byte, error)
}

type referenceKind int

const (
	kindFile referenceKind = iota
	kindHTTP
	kindGithub
)

var (
	httpSchemeRe = regexp.MustCompile(`(?i)^https?:`)
	gitRe        = regexp.MustCompile(`(?i)\.git\b`)
	githubRe     = regexp.MustCompile(`(?i)^github:`)
)

// classify applies spec.md §4.4 step 1, extended per SPEC_FULL.md
// §12.4 to give `github:` shorthand its own kind: HTTP is checked
// first, then the git-rejection (this order matters — a github
// shorthand containing ".git" in its path must still be rejected),
// then the github carve-out, and everything else is a local file.
func classify(reference string) (referenceKind, error) {
	switch {
	case httpSchemeRe.MatchString(reference):
		return kindHTTP, nil
	case gitRe.MatchString(reference):
		return 0, ErrGitSourcesNotSupported
	case githubRe.MatchString(reference):
		return kindGithub, nil
	default:
		return kindFile, nil
	}
}

// Options configures a Resolver.
type Options struct {
	UseCache bool

	// CacheLocalFiles resolves spec.md §4.4's "open question, §9":
	// whether local-file references may be cached. Default false.
	CacheLocalFiles bool

	Logger zerolog.Logger
}

// Resolver is the IncludeResolver.
type Resolver struct {
	cache  *cache.FileCache
	file   Reader
	http   Reader
	github Reader
	opts   Options
}

func New(c *cache.FileCache, fileReader, httpReader, githubReader Reader, opts Options) *Resolver {
	return &Resolver{cache: c, file: fileReader, http: httpReader, github: githubReader, opts: opts}
}

// Resolve implements spec.md §4.4's resolve algorithm.
func (r *Resolver) Resolve(reference string) ([]byte, error) {
	kind, err := classify(reference)
	if err != nil {
		return nil, err
	}

	cacheable := r.opts.UseCache && r.cachingAllowed(kind) && !r.cache.IsExcluded(reference)

	if cacheable {
		body, ok, err := r.cache.Find(reference)
		if err != nil {
			return nil, err
		}
		if ok {
			r.opts.Logger.Debug().Str("reference", reference).Msg("resolved from cache")
			return body, nil
		}
	}

	var body []byte
	switch kind {
	case kindHTTP:
		body, err = r.http.Read(reference)
	case kindGithub:
		body, err = r.github.Read(reference)
	default:
		body, err = r.file.Read(reference)
	}
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := r.cache.Store(reference, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// cachingAllowed implements the policy in spec.md §4.4: "Remote
// references are cached only when not excluded. Local-file references
// are generally not cached... the cache API is symmetric and does not
// prohibit local caching."
func (r *Resolver) cachingAllowed(kind referenceKind) bool {
	if kind == kindFile {
		return r.opts.CacheLocalFiles
	}
	return true
}
