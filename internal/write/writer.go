// Package write persists compiled representations into the output
// directory. The writer only touches files whose content actually changed,
// so downstream tooling watching the output tree sees minimal churn.
package write

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xavier/nanoc/internal/compile"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/metrics"
)

// Status classifies what happened to one representation's output file.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusIdentical Status = "identical"
	StatusSkipped   Status = "skipped"
)

// Result records the outcome for one representation.
type Result struct {
	Rep    *compile.ItemRep
	Path   string // absolute output path; empty when skipped
	Status Status
}

// Writer writes compiled representations under one output directory.
type Writer struct {
	outputDir string
	recorder  metrics.Recorder
}

// NewWriter builds a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir, recorder: metrics.NoopRecorder{}}
}

// WithRecorder swaps the metrics recorder.
func (w *Writer) WithRecorder(rec metrics.Recorder) *Writer {
	if rec != nil {
		w.recorder = rec
	}
	return w
}

// WriteAll persists every compiled, routed representation. Uncompiled reps
// and reps routed to no path are skipped. A failing write does not stop the
// pass; failures come back joined after every rep had its chance.
func (w *Writer) WriteAll(ctx context.Context, reps []*compile.ItemRep) ([]Result, error) {
	results := make([]Result, 0, len(reps))
	counts := map[Status]int{}
	var failures []error

	for _, rep := range reps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := w.writeRep(rep)
		if err != nil {
			failures = append(failures, err)
			w.recorder.IncWriteStatus("failed")
			slog.Error("write failed",
				logfields.Item(rep.Item.Identifier),
				logfields.Rep(rep.Name),
				logfields.Error(err))
			continue
		}
		w.recorder.IncWriteStatus(string(res.Status))
		counts[res.Status]++
		results = append(results, res)
	}

	slog.Info("output written",
		slog.Int("created", counts[StatusCreated]),
		slog.Int("updated", counts[StatusUpdated]),
		slog.Int("identical", counts[StatusIdentical]),
		slog.Int("skipped", counts[StatusSkipped]))
	return results, errors.Join(failures...)
}

func (w *Writer) writeRep(rep *compile.ItemRep) (Result, error) {
	if !rep.Compiled() {
		return Result{Rep: rep, Status: StatusSkipped}, nil
	}
	routePath, routed := rep.Path()
	if !routed || routePath == "" {
		return Result{Rep: rep, Status: StatusSkipped}, nil
	}

	outPath := filepath.Join(w.outputDir, filepath.FromSlash(routePath))
	body := rep.CompiledContent()

	status := StatusCreated
	old, err := os.ReadFile(outPath)
	switch {
	case err == nil && bytes.Equal(old, body):
		return Result{Rep: rep, Path: outPath, Status: StatusIdentical}, nil
	case err == nil:
		status = StatusUpdated
	case !os.IsNotExist(err):
		return Result{}, nanocerr.WriteFailed(outPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return Result{}, nanocerr.WriteFailed(outPath, err)
	}
	// #nosec G306 -- compiled site output is meant to be served publicly
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		return Result{}, nanocerr.WriteFailed(outPath, err)
	}

	slog.Debug("wrote representation",
		logfields.Item(rep.Item.Identifier),
		logfields.Rep(rep.Name),
		logfields.OutputPath(outPath),
		slog.Int("bytes", len(body)))
	return Result{Rep: rep, Path: outPath, Status: status}, nil
}
