package fetch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// /teams/{team_id}/squad
func (c *Client) TeamSquad(ctx context.Context, teamID string, force bool) ([]byte, error) {
	return c.FetchRaw(
		ctx,
		fmt.Sprintf("/teams/%s/squad", url.PathEscape(teamID)),
		fmt.Sprintf("teams/%s/squad.json", teamID),
		force,
	)
}

// Page fetches an HTML page, an FBRef squad page, and caches it at relPath.
func (c *Client) Page(ctx context.Context, pageURL string, relPath string, force bool) ([]byte, error) {
	return c.FetchRaw(ctx, pageURL, relPath, force)
}

// PageRelPath is the cache path for an HTML page: the last URL path segment
// under fbref/, or "fbref/index.html".
func PageRelPath(pageURL string) string {
	name := "index"
	if u, err := url.Parse(pageURL); err == nil {
		if base := path.Base(strings.TrimSuffix(u.Path, "/")); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	return "fbref/" + name + ".html"
}
