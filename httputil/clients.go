package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Clients struct {
	Search  *http.Client // bulk search pages, no explicit timeout
	History *http.Client // per-deal history fetches, short timeout
}

func NewClients(token string, historyTimeout time.Duration) *Clients {
	rt := &bearerTransport{token: token, base: http.DefaultTransport}

	return &Clients{
		Search: &http.Client{Transport: rt},
		History: &http.Client{
			Timeout:   historyTimeout,
			Transport: rt,
		},
	}
}

// bearerTransport adds the API credential to every outgoing request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// DoWithRetry issues the request built by build up to attempts times,
// sleeping delay between tries. Only a 200 counts as success; other
// statuses are drained and retried. The last error (or status) is
// returned once attempts are exhausted.
func DoWithRetry(ctx context.Context, client *http.Client, attempts int, delay time.Duration, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d for %s", resp.StatusCode, req.URL.Path)
		} else {
			lastErr = err
		}

		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}
