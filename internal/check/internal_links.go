package check

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/xavier/nanoc/internal/logfields"
)

// InternalLinks verifies that every internal reference in every page
// resolves to a file in the output tree. Directory-style links resolve
// through the target's index filenames, mirroring how a web server would
// serve them.
type InternalLinks struct{}

func (InternalLinks) Name() string { return "internal_links" }

func (c InternalLinks) Check(ctx context.Context, t *Target) ([]Issue, error) {
	pages, err := t.HTMLFiles()
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return issues, err
		}
		links, err := extractFromFile(t, page)
		if err != nil {
			slog.Warn("page not parseable, skipping", logfields.Path(page), logfields.Error(err))
			continue
		}
		for _, l := range links {
			if !l.IsInternal || !Verifiable(l) {
				continue
			}
			if resolves(t, page, l.URL) {
				continue
			}
			issues = append(issues, Issue{
				Checker: c.Name(),
				Path:    page,
				Subject: l.URL,
				Message: "target does not exist in the output directory",
			})
		}
	}
	return issues, nil
}

func extractFromFile(t *Target, page string) ([]Link, error) {
	f, err := os.Open(filepath.Join(t.OutputDir, filepath.FromSlash(page)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ExtractLinks(f, t.BaseURL)
}

// resolves reports whether a link from page lands on an existing output
// file. Queries and fragments are ignored; url.Parse already decoded any
// percent escapes in the path.
func resolves(t *Target, page, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		// Pure query or fragment: points at the page itself.
		return true
	}

	var fsPath string
	if strings.HasPrefix(p, "/") {
		fsPath = filepath.Join(t.OutputDir, filepath.FromSlash(p))
	} else {
		fsPath = filepath.Join(t.OutputDir, filepath.Dir(filepath.FromSlash(page)), filepath.FromSlash(p))
	}

	if info, err := os.Stat(fsPath); err == nil {
		if !info.IsDir() {
			return true
		}
		for _, idx := range t.IndexFilenames {
			if _, err := os.Stat(filepath.Join(fsPath, idx)); err == nil {
				return true
			}
		}
	}
	return false
}
