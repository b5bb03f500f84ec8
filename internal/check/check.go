// Package check inspects a built site for common defects: internal
// references that resolve to nothing, dead external links, and stale files
// left in the output directory by earlier builds. Checks run against the
// written output, not the source tree, so they see exactly what a visitor
// would.
package check

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xavier/nanoc/internal/logfields"
)

// Issue is one defect found by a checker.
type Issue struct {
	Checker string
	Path    string // output file the issue was found in, relative to the output dir
	Subject string // the offending link or file
	Message string
}

// Target describes the built site under inspection.
type Target struct {
	OutputDir      string
	BaseURL        string
	IndexFilenames []string

	written map[string]struct{}
}

// NewTarget builds a check target over an output directory.
func NewTarget(outputDir, baseURL string) *Target {
	return &Target{
		OutputDir:      outputDir,
		BaseURL:        baseURL,
		IndexFilenames: []string{"index.html"},
		written:        make(map[string]struct{}),
	}
}

// MarkWritten records that the latest build produced the given file,
// relative to the output directory. The stale checker compares the output
// tree against this set.
func (t *Target) MarkWritten(rel string) {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	if rel != "" {
		t.written[rel] = struct{}{}
	}
}

// Written reports whether the latest build produced rel.
func (t *Target) Written(rel string) bool {
	_, ok := t.written[strings.TrimPrefix(filepath.ToSlash(rel), "/")]
	return ok
}

// HasWrittenSet reports whether any files were marked written.
func (t *Target) HasWrittenSet() bool { return len(t.written) > 0 }

// HTMLFiles walks the output directory and returns the page files to
// inspect, as sorted slash-separated paths relative to the output dir.
func (t *Target) HTMLFiles() ([]string, error) {
	var pages []string
	err := filepath.WalkDir(t.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
		default:
			return nil
		}
		rel, err := filepath.Rel(t.OutputDir, path)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking output directory: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

// Checker inspects one aspect of a built site.
type Checker interface {
	Name() string
	Check(ctx context.Context, t *Target) ([]Issue, error)
}

// ByName resolves check names (long form or historical short alias) to
// checkers.
func ByName(names ...string) ([]Checker, error) {
	var checkers []Checker
	for _, name := range names {
		switch strings.ToLower(name) {
		case "internal_links", "ilinks":
			checkers = append(checkers, InternalLinks{})
		case "external_links", "elinks":
			checkers = append(checkers, NewExternalLinks())
		case "stale":
			checkers = append(checkers, Stale{})
		default:
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	return checkers, nil
}

// Run executes the checkers in order and returns every issue found. A
// checker that fails to run at all aborts the remaining ones; issues alone
// never do.
func Run(ctx context.Context, t *Target, checkers ...Checker) ([]Issue, error) {
	var all []Issue
	for _, c := range checkers {
		start := time.Now()
		issues, err := c.Check(ctx, t)
		if err != nil {
			return all, fmt.Errorf("check %s: %w", c.Name(), err)
		}
		slog.Info("check finished",
			slog.String("check", c.Name()),
			logfields.Count(len(issues)),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
		all = append(all, issues...)
	}
	return all, nil
}
