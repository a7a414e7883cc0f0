package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// raw.githubusercontent.com serves the dcmqi documents as text/plain
	acceptHeader = "application/schema+json, application/json;q=0.9, text/plain;q=0.5"
	userAgent    = "dcmmeta"
)

func fetch(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration, maxBytes int64) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("loader: url is required")
	}
	target := githubRaw(rawURL)

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("loader: GET %s: unexpected status %s", target, resp.Status)
	}
	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w: %s declares %d bytes", ErrTooLarge, target, resp.ContentLength)
	}
	return readCapped(resp.Body, target, maxBytes)
}

// githubRaw turns a github.com "blob" page link, the form vocabulary and
// schema links are usually shared in, into its raw content URL.
func githubRaw(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "github.com" {
		return rawURL
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 4)
	if len(parts) < 4 || parts[2] != "blob" {
		return rawURL
	}
	return "https://raw.githubusercontent.com/" + parts[0] + "/" + parts[1] + "/" + parts[3]
}
