package resolver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "gopkg.in/cenkalti/backoff.v1"
)

// HTTPReader fetches http(s):// references, retrying transient
// failures (5xx, connection errors) with exponential backoff —
// grounded in the teacher's go.mod direct dependency on
// gopkg.in/cenkalti/backoff.v1, unused in spec.md's own fetch sketch
// but a natural fit for a reader making outbound network calls.
type HTTPReader struct {
	Client      *http.Client
	MaxRetries  int
	InitialWait time.Duration
}

func NewHTTPReader(timeout time.Duration) *HTTPReader {
	return &HTTPReader{
		Client:      &http.Client{Timeout: timeout},
		MaxRetries:  3,
		InitialWait: 200 * time.Millisecond,
	}
}

func (r *HTTPReader) Read(reference string) ([]byte, error) {
	var body []byte

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialWait
	b.MaxElapsedTime = time.Duration(r.MaxRetries+1) * (r.InitialWait + b.MaxInterval)

	operation := func() error {
		resp, err := r.Client.Get(reference)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s: server error: %s", reference, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%s: unexpected status: %s", reference, resp.Status))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	strategy := backoff.WithMaxTries(b, uint64(r.MaxRetries))
	if err := backoff.Retry(operation, strategy); err != nil {
		return nil, err
	}
	return body, nil
}
