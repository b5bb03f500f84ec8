package check

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/xavier/nanoc/internal/logfields"
)

const checkerUserAgent = "nanoc-link-checker/1.0"

// ExternalLinks verifies outbound links over HTTP with bounded concurrency.
// Every distinct URL is fetched once no matter how many pages reference it.
// Authentication walls and rate limits (401, 403, 429) count as alive: the
// URL exists, it just will not talk to an anonymous checker.
type ExternalLinks struct {
	client        *http.Client
	maxConcurrent int
}

// ExternalOption configures the external link checker.
type ExternalOption func(*ExternalLinks)

// WithTimeout caps how long a single link fetch may take.
func WithTimeout(d time.Duration) ExternalOption {
	return func(e *ExternalLinks) {
		if d > 0 {
			e.client.Timeout = d
		}
	}
}

// WithMaxConcurrent caps how many links are fetched at once.
func WithMaxConcurrent(n int) ExternalOption {
	return func(e *ExternalLinks) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// NewExternalLinks builds the external link checker. The transport honors
// the usual proxy environment variables.
func NewExternalLinks(opts ...ExternalOption) *ExternalLinks {
	e := &ExternalLinks{
		client:        &http.Client{Timeout: 10 * time.Second},
		maxConcurrent: 10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ExternalLinks) Name() string { return "external_links" }

func (e *ExternalLinks) Check(ctx context.Context, t *Target) ([]Issue, error) {
	pages, err := t.HTMLFiles()
	if err != nil {
		return nil, err
	}

	// Deduplicate targets first; a footer link repeated on every page is
	// still one fetch.
	sources := make(map[string][]string)
	for _, page := range pages {
		links, err := extractFromFile(t, page)
		if err != nil {
			slog.Warn("page not parseable, skipping", logfields.Path(page), logfields.Error(err))
			continue
		}
		for _, l := range links {
			if l.IsInternal || !Verifiable(l) {
				continue
			}
			sources[l.URL] = append(sources[l.URL], page)
		}
	}

	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var issues []Issue

	for rawURL, pagesWithLink := range sources {
		select {
		case <-ctx.Done():
			wg.Wait()
			return issues, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(rawURL string, pagesWithLink []string) {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := e.fetch(ctx, rawURL)
			if err == nil {
				return
			}
			mu.Lock()
			for _, page := range pagesWithLink {
				issues = append(issues, Issue{
					Checker: e.Name(),
					Path:    page,
					Subject: rawURL,
					Message: fmt.Sprintf("unreachable (status %d): %v", status, err),
				})
			}
			mu.Unlock()
		}(rawURL, pagesWithLink)
	}
	wg.Wait()

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		return issues[i].Subject < issues[j].Subject
	})
	return issues, nil
}

// fetch probes a URL with HEAD, falling back to GET when the server
// mishandles HEAD. The returned status is the last one observed.
func (e *ExternalLinks) fetch(ctx context.Context, rawURL string) (int, error) {
	status, err := e.request(ctx, http.MethodHead, rawURL)
	if err != nil && (status == http.StatusNotFound || status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		return e.request(ctx, http.MethodGet, rawURL)
	}
	return status, err
}

func (e *ExternalLinks) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", checkerUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if aliveBehindWall(resp.StatusCode) {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("HTTP %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// aliveBehindWall reports status codes that mean the URL exists but refuses
// anonymous automated access.
func aliveBehindWall(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
