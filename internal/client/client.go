// Package client implements HTTP clients for the external collaborators
// of the turnos service: the service catalog and the user directory.
// Both forward the caller's bearer token and bound every call with the
// configured timeout; a timeout or transport failure is reported as
// UPSTREAM_UNAVAILABLE, never as silent success.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/turnosmed/api-turnos/internal/apperror"
)

// httpDoer lets tests substitute the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newHTTPClient builds the shared outbound client.  The timeout covers
// the whole exchange including body read.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs an authenticated GET and decodes the response body
// into out.  It maps a 404 to notFound and anything else unexpected to
// UPSTREAM_UNAVAILABLE so collaborator failures never leak raw.
func getJSON(ctx context.Context, hc httpDoer, url, token string, notFound *apperror.Error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperror.ErrUpstream.WithErr(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return apperror.ErrUpstream.WithErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperror.ErrUpstream.WithErr(fmt.Errorf("decode %s: %w", url, err))
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return notFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperror.ErrUnauthenticated.WithErr(fmt.Errorf("upstream rejected token: %s", resp.Status))
	default:
		return apperror.ErrUpstream.WithErr(fmt.Errorf("GET %s: unexpected status %s", url, resp.Status))
	}
}
