// Package fetch downloads roster data from the remote provider and caches the
// raw payloads in a JSONStore.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/afpthedev/super-duper-winner/internal/store"
)

type Client struct {
	HTTP         *http.Client
	Store        *store.JSONStore
	BaseURL      string
	UserAgent    string
	Sleep        time.Duration
	PrettyWrite  bool
	UseCache     bool
	DisableWrite bool
}

func NewClient(st *store.JSONStore) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		Store:       st,
		BaseURL:     "https://fbref.com",
		UserAgent:   "squad-raw/1.0",
		Sleep:       2 * time.Second,
		PrettyWrite: true,
		UseCache:    true,
	}
}

// FetchRaw downloads urlPath (like "/teams/18bb7c10/squad") and writes it to
// relPath. An absolute URL is used as is. Returns the body from cache or
// network.
func (c *Client) FetchRaw(ctx context.Context, urlPath string, relPath string, force bool) ([]byte, error) {
	if !force && c.UseCache && c.Store.Exists(relPath) {
		return c.Store.ReadRaw(relPath)
	}

	if c.Sleep > 0 {
		select {
		case <-time.After(c.Sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	url := urlPath
	if !strings.HasPrefix(urlPath, "http://") && !strings.HasPrefix(urlPath, "https://") {
		url = c.BaseURL + urlPath
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", urlPath, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s failed: %d body=%s", urlPath, resp.StatusCode, truncate(body, 512))
	}

	if !c.DisableWrite {
		if err := c.Store.WriteRaw(relPath, body, c.PrettyWrite); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
