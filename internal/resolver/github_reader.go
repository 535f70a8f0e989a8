package resolver

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GithubReader fetches `github:owner/repo/path[@ref]` shorthand over
// plain HTTP from raw.githubusercontent.com (ref defaults to "HEAD"),
// grounded in the teacher's internal/github/releases.go HTTP-fetch
// style (SPEC_FULL.md §12.4). This resolves spec.md §9's first Open
// Question by giving github: its own reader instead of conflating it
// with the local-file reader: a `.git`-clone-based reader would
// reintroduce exactly the code path spec.md explicitly rejects.
type GithubReader struct {
	Client  *http.Client
	BaseURL string // defaults to "https://raw.githubusercontent.com"
}

func NewGithubReader(client *http.Client) *GithubReader {
	return &GithubReader{
		Client:  client,
		BaseURL: "https://raw.githubusercontent.com",
	}
}

func (r *GithubReader) Read(reference string) ([]byte, error) {
	owner, repo, filePath, ref, err := ParseGithubReference(reference)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		ref = "HEAD"
	}

	url := fmt.Sprintf("%s/%s/%s/%s/%s", r.BaseURL, owner, repo, ref, filePath)

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status fetching %s: %s", reference, url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ParseGithubReference parses `github:owner/repo/path[@ref]`.
func ParseGithubReference(reference string) (owner, repo, filePath, ref string, err error) {
	body := strings.TrimPrefix(reference, "github:")
	if body == reference {
		return "", "", "", "", fmt.Errorf("not a github: reference: %q", reference)
	}

	if idx := strings.LastIndex(body, "@"); idx != -1 {
		ref = body[idx+1:]
		body = body[:idx]
	}

	parts := strings.SplitN(body, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", "", fmt.Errorf("malformed github reference %q, expected github:owner/repo/path[@ref]", reference)
	}
	return parts[0], parts[1], parts[2], ref, nil
}
