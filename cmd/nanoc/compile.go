package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/xavier/nanoc/internal/buildcache"
	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/metrics"
	"github.com/xavier/nanoc/internal/rules"
	"github.com/xavier/nanoc/internal/site"
	"github.com/xavier/nanoc/internal/write"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Force bool   `short:"f" help:"Recompile everything, ignoring the build cache"`
	Rules string `short:"r" help:"Rules file path" default:"rules.yaml"`
}

func (c *CompileCmd) Run(_ *Global, root *CLI) error {
	fmt.Println("Compiling site")
	out, err := runBuild(context.Background(), root, buildOptions{rulesPath: c.Rules, force: c.Force})
	if out != nil {
		printBuildSummary(out)
	}
	return err
}

// buildOptions tunes one build pass.
type buildOptions struct {
	rulesPath string
	force     bool
	recorder  metrics.Recorder // nil means no metrics
}

// buildOutput collects everything one build pass produced, for commands
// that keep working with the result (watch reuses the site, check needs
// the written paths).
type buildOutput struct {
	Site    *site.Site
	Rules   *rules.Set
	Reps    []*compile.ItemRep
	Results []write.Result
}

// runBuild is the full pipeline behind 'compile': boot the site, compile
// every representation, write the output, and refresh the build cache.
// Per-representation failures do not abort the pass; they come back joined
// after writing whatever did compile.
func runBuild(ctx context.Context, root *CLI, opts buildOptions) (*buildOutput, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	rec := opts.recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	buildID := uuid.NewString()
	start := time.Now()
	slog.Info("compilation starting", logfields.BuildID(buildID))

	ruleSet, rulesDigest, err := loadRules(opts.rulesPath)
	if err != nil {
		return nil, err
	}

	s, err := site.New(".", cfg, site.WithRecorder(rec))
	if err != nil {
		return nil, err
	}
	if err := s.LoadData(ctx, opts.force); err != nil {
		return nil, err
	}

	cache := openCache(cfg.Cache.IsEnabled(), cfg.Cache.Path)
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				slog.Warn("closing build cache", logfields.Error(err))
			}
		}()
		reportOutdated(ctx, cache, s, ruleSet, rulesDigest, opts.force)
	}

	reps, compileErr := compile.NewCompiler(s, ruleSet).WithRecorder(rec).Run(ctx)

	results, writeErr := write.NewWriter(s.Config().OutputDir).WithRecorder(rec).WriteAll(ctx, reps)

	if cache != nil {
		recordBuild(ctx, cache, s, results, rulesDigest)
	}

	out := &buildOutput{Site: s, Rules: ruleSet, Reps: reps, Results: results}
	if err := errors.Join(compileErr, writeErr); err != nil {
		return out, err
	}

	slog.Info("compilation finished",
		logfields.BuildID(buildID),
		logfields.Count(len(reps)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return out, nil
}

// loadRules reads the rules file when one exists and falls back to the
// compile-everything default otherwise. The digest feeds item checksums so
// a rules edit invalidates the whole cache.
func loadRules(path string) (*rules.Set, string, error) {
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("no rules file, using defaults", logfields.Path(path))
		return rules.Default(), buildcache.DigestBytes([]byte("builtin")), nil
	}
	if err != nil {
		return nil, "", err
	}
	set, err := rules.Parse(src)
	if err != nil {
		return nil, "", err
	}
	return set, buildcache.DigestBytes(src), nil
}

// openCache opens the build cache, treating every failure as "no cache":
// the store only powers change reporting, never correctness.
func openCache(enabled bool, path string) *buildcache.Store {
	if !enabled {
		return nil
	}
	cache, err := buildcache.Open(path)
	if err != nil {
		slog.Warn("build cache unavailable, continuing without it",
			logfields.Path(path), logfields.Error(err))
		return nil
	}
	return cache
}

// reportOutdated compares every representation's checksum against the last
// recorded build and logs how much of the site actually changed.
func reportOutdated(ctx context.Context, cache *buildcache.Store, s *site.Site, ruleSet *rules.Set, rulesDigest string, force bool) {
	if force {
		slog.Info("forced rebuild, skipping outdatedness check")
		return
	}

	codeChanged, err := cache.SnippetsChanged(ctx, s.CodeSnippets())
	if err != nil {
		slog.Warn("snippet change detection failed", logfields.Error(err))
		codeChanged = true
	}
	if codeChanged {
		slog.Info("code snippets changed, all items considered outdated")
		return
	}

	outdated, total := 0, 0
	for _, item := range s.Items() {
		sum := buildcache.Checksum(item, rulesDigest)
		for _, repName := range ruleSet.RepNamesFor(item) {
			total++
			entry, ok, err := cache.Lookup(ctx, item.Identifier, repName)
			if err != nil || !ok || entry.Checksum != sum {
				outdated++
			}
		}
	}
	slog.Info("outdatedness checked",
		slog.Int("outdated", outdated),
		slog.Int("total", total))
}

// recordBuild refreshes the cache from the write results and drops entries
// for representations this build no longer produces.
func recordBuild(ctx context.Context, cache *buildcache.Store, s *site.Site, results []write.Result, rulesDigest string) {
	now := time.Now()
	live := make(map[string]struct{}, len(results))
	for _, res := range results {
		if res.Status == write.StatusSkipped {
			continue
		}
		rep := res.Rep
		live[buildcache.LiveKey(rep.Item.Identifier, rep.Name)] = struct{}{}
		entry := buildcache.Entry{
			Identifier: rep.Item.Identifier,
			Rep:        rep.Name,
			Checksum:   buildcache.Checksum(rep.Item, rulesDigest),
			OutputPath: res.Path,
			BuiltAt:    now,
		}
		if err := cache.Record(ctx, entry); err != nil {
			slog.Warn("recording build cache entry",
				logfields.Item(rep.Item.Identifier), logfields.Error(err))
			return
		}
	}

	if pruned, err := cache.Prune(ctx, live); err != nil {
		slog.Warn("pruning build cache", logfields.Error(err))
	} else if pruned > 0 {
		slog.Debug("pruned stale cache entries", logfields.Count(pruned))
	}

	if err := cache.RememberSnippets(ctx, s.CodeSnippets()); err != nil {
		slog.Warn("recording snippet state", logfields.Error(err))
	}
}

func printBuildSummary(out *buildOutput) {
	counts := map[write.Status]int{}
	for _, res := range out.Results {
		counts[res.Status]++
	}
	fmt.Printf("Site compiled: %d items, %d created, %d updated, %d identical\n",
		len(out.Site.Items()),
		counts[write.StatusCreated],
		counts[write.StatusUpdated],
		counts[write.StatusIdentical])
}
