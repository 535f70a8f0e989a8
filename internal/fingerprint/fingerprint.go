// Package fingerprint implements PathFingerprint (spec.md §4.2): a pure,
// deterministic, collision-resistant, length-bounded mapping from an
// include reference string to an on-disk cache filename.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind classifies a reference by scheme.
type Kind int

const (
	KindFile Kind = iota
	KindHTTP
	KindGithub
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindGithub:
		return "github"
	default:
		return "file"
	}
}

// maxFilenameBytes bounds the generated filename, per spec §4.2/§8.
const maxFilenameBytes = 255

// prefixBudget is how much of maxFilenameBytes goes to the
// human-readable, sanitized prefix; the rest is the scheme tag, the
// digest, and separators, all of fixed size.
const prefixBudget = 120

var httpScheme = regexp.MustCompile(`(?i)^https?:`)
var githubScheme = regexp.MustCompile(`(?i)^github:`)

// unsafeChar matches anything not safe to put verbatim in a filename.
var unsafeChar = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Fingerprint is the result of Compute: a deterministic cache filename,
// the reference's kind, and a short human-readable display name.
type Fingerprint struct {
	Path    string
	Kind    Kind
	Display string
}

// Classify reports which scheme reference uses. This mirrors (but is
// independent of) IncludeResolver's own classification in §4.4 — the
// two must never disagree, since a mismatch would make two references
// classified differently by each hash to the same scheme tag.
func Classify(reference string) Kind {
	switch {
	case httpScheme.MatchString(reference):
		return KindHTTP
	case githubScheme.MatchString(reference):
		return KindGithub
	default:
		return KindFile
	}
}

// Compute is PathFingerprint: (reference) → (path, kind, display_name).
//
// The filename is composed of a scheme tag, a sanitized length-capped
// human-readable prefix, and the full SHA-256 digest of the *entire*
// reference string (hex-encoded). Hashing the whole reference string —
// not just a parsed-out "path" component — is what makes the mapping
// injective in practice: "a/b/c.js" and "a/b/c.js@a" are different
// strings before any parsing happens, so they already hash
// differently; the github-ref and URL-query parsing below only feeds
// the debug-friendly prefix, never the digest input.
func Compute(reference string) Fingerprint {
	kind := Classify(reference)

	digest := sha256.Sum256([]byte(reference))
	hexDigest := hex.EncodeToString(digest[:])

	prefix, display := prefixAndDisplay(reference, kind)
	prefix = sanitize(prefix)
	prefix = capBytes(prefix, prefixBudget)

	name := kind.String() + "-" + prefix + "-" + hexDigest
	name = capBytes(name, maxFilenameBytes)

	return Fingerprint{Path: name, Kind: kind, Display: display}
}

func prefixAndDisplay(reference string, kind Kind) (prefix, display string) {
	switch kind {
	case KindHTTP:
		u, err := url.Parse(reference)
		if err != nil {
			return reference, reference
		}
		p := u.Path
		if u.RawQuery != "" {
			p += "?" + u.RawQuery
		}
		display = path.Base(u.Path)
		if display == "" || display == "." || display == "/" {
			display = u.Host
		}
		return u.Host + p, display
	case KindGithub:
		owner, repo, filePath, ref := parseGithubRef(reference)
		prefix = owner + "-" + repo + "-" + filePath
		if ref != "" {
			prefix += "@" + ref
		}
		display = path.Base(filePath)
		return prefix, display
	default:
		return reference, filepath.Base(reference)
	}
}

// parseGithubRef parses `github:owner/repo/path[@ref]`.
func parseGithubRef(reference string) (owner, repo, filePath, ref string) {
	body := strings.TrimPrefix(reference, "github:")
	body = strings.TrimPrefix(body, "GITHUB:") // defensive; Classify is case-insensitive
	if idx := strings.LastIndex(body, "@"); idx != -1 {
		ref = body[idx+1:]
		body = body[:idx]
	}
	parts := strings.SplitN(body, "/", 3)
	if len(parts) > 0 {
		owner = parts[0]
	}
	if len(parts) > 1 {
		repo = parts[1]
	}
	if len(parts) > 2 {
		filePath = parts[2]
	}
	return
}

func sanitize(s string) string {
	return unsafeChar.ReplaceAllString(s, "_")
}

// capBytes truncates s to at most n bytes. sanitize() guarantees s is
// pure ASCII at the call sites that matter (the prefix), so byte
// truncation never splits a multi-byte rune there; the one call site
// operating on the whole (already-ASCII) filename is likewise safe.
func capBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
