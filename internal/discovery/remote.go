// remote.go implements discovery against a remote package-index search
// endpoint. The protocol is a flat paginated JSON search:
//
//	GET <base>?q=<query>&tag=<tag>&skip=<n>&take=<n>
//	→ {"totalHits": N, "data": [{"id", "version", "title", "description", "tags"}]}
//
// Every request carries a bounded timeout and a cancellation check before
// it is issued. Failures never propagate as panics or raw errors past the
// Service boundary; they become SourceError entries.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devforge-io/devforge/internal/model"
)

// pageSize is the number of results requested per search page.
const pageSize = 50

// maxPages bounds pagination so a misbehaving index reporting an absurd
// totalHits cannot spin the client forever.
const maxPages = 40

// searchResponse is the remote index's search reply shape.
type searchResponse struct {
	TotalHits int             `json:"totalHits"`
	Data      []remotePackage `json:"data"`
}

// remotePackage is one search hit.
type remotePackage struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// searchRemote pages through the index's results for the given query and
// tag filter. A nil error with zero results means the index genuinely has
// nothing matching, which is the signal for the legacy-tag fallback.
func searchRemote(ctx context.Context, client *http.Client, baseURL string, query string, tag string) ([]model.PackageSummary, error) {
	source := model.SourceRef{Kind: model.SourceRemote, Location: baseURL}

	var packages []model.PackageSummary
	for page := 0; page < maxPages; page++ {
		// Cancellation is checked before each network call, not only at
		// the start of the operation.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search cancelled: %w", err)
		}

		resp, err := fetchPage(ctx, client, baseURL, query, tag, page*pageSize)
		if err != nil {
			return nil, err
		}

		for _, hit := range resp.Data {
			title := hit.Title
			if title == "" {
				title = hit.ID
			}
			packages = append(packages, model.PackageSummary{
				ID:          hit.ID,
				Version:     hit.Version,
				Title:       title,
				Description: hit.Description,
				Tags:        hit.Tags,
				Source:      source.String(),
			})
		}

		if len(resp.Data) < pageSize || len(packages) >= resp.TotalHits {
			break
		}
	}

	return packages, nil
}

// fetchPage issues one search request and decodes the reply.
func fetchPage(ctx context.Context, client *http.Client, baseURL string, query string, tag string, skip int) (*searchResponse, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL %q: %w", baseURL, err)
	}

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if tag != "" {
		params.Set("tag", tag)
	}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("take", strconv.Itoa(pageSize))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message; the index's
		// error text is usually short and useful.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}
	return &parsed, nil
}
