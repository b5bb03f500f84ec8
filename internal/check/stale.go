package check

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
)

// Stale flags output files that the latest build did not produce. They are
// usually leftovers from renamed or deleted items and keep serving outdated
// content until removed.
type Stale struct{}

func (Stale) Name() string { return "stale" }

func (c Stale) Check(ctx context.Context, t *Target) ([]Issue, error) {
	if !t.HasWrittenSet() {
		return nil, fmt.Errorf("stale check needs the set of files written by a build; run it after a compile")
	}

	var issues []Issue
	err := filepath.WalkDir(t.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(t.OutputDir, path)
		if err != nil {
			return err
		}
		if t.Written(rel) {
			return nil
		}
		issues = append(issues, Issue{
			Checker: c.Name(),
			Path:    filepath.ToSlash(rel),
			Subject: filepath.ToSlash(rel),
			Message: "not produced by the last build",
		})
		return nil
	})
	if err != nil {
		return issues, fmt.Errorf("walking output directory: %w", err)
	}
	return issues, nil
}
