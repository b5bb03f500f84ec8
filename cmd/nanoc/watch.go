package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/metrics"
)

// WatchCmd implements the 'watch' command: recompile on every source
// change, optionally serving the output directory in the same process.
type WatchCmd struct {
	Rules string `short:"r" help:"Rules file path" default:"rules.yaml"`
	Serve bool   `short:"s" help:"Serve the output directory while watching"`
}

// debounce window between the first filesystem event and the rebuild, so
// editors that write multiple files (or write then rename) trigger one pass.
const rebuildDebounce = 500 * time.Millisecond

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := buildOptions{rulesPath: w.Rules}
	serveErr := make(chan error, 1)
	if w.Serve {
		reg := processRegistry()
		opts.recorder = metrics.NewPrometheusRecorder(reg)
		var metricsHandler http.Handler
		if cfg.View.Metrics {
			metricsHandler = metrics.HTTPHandler(reg)
		}
		srv := newSiteServer(cfg.View.Addr, cfg.OutputDir, metricsHandler)
		go func() { serveErr <- serveUntilDone(ctx, srv) }()
		fmt.Printf("Serving %s on http://%s\n", cfg.OutputDir, cfg.View.Addr)
	}

	fmt.Println("Watching for changes")
	if out, err := runBuild(ctx, root, opts); err != nil {
		slog.Error("initial build failed", logfields.Error(err))
	} else {
		printBuildSummary(out)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("closing file watcher", logfields.Error(err))
		}
	}()

	roots := watchRoots(cfg)
	for _, dir := range roots {
		if err := addRecursive(watcher, dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	// The site root is watched flat so rules and config edits are seen
	// without reacting to output or cache churn.
	if err := watcher.Add("."); err != nil {
		return fmt.Errorf("watch site root: %w", err)
	}

	rebuilds := make(chan struct{}, 1)
	go rebuildLoop(ctx, root, opts, rebuilds)

	scheduler, err := startSchedule(cfg.Watch.Schedule, rebuilds)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("stopping scheduler", logfields.Error(err))
			}
		}()
	}

	rootFiles := map[string]struct{}{
		filepath.Base(root.Config): {},
		filepath.Base(w.Rules):     {},
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopped watching")
			return nil
		case err := <-serveErr:
			return err
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, roots, rootFiles) {
				continue
			}
			// New directories join the watch set so files created inside
			// them keep triggering rebuilds.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						slog.Warn("watching new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("source changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			triggerRebuild(rebuilds)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("file watcher error", logfields.Error(err))
		}
	}
}

// rebuildLoop serializes rebuilds: triggers arriving while a debounce
// window is open collapse into one pass, and triggers arriving during a
// build queue at most one follow-up.
func rebuildLoop(ctx context.Context, root *CLI, opts buildOptions, rebuilds <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuilds:
		}

		timer := time.NewTimer(rebuildDebounce)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-rebuilds:
				timer.Reset(rebuildDebounce)
			case <-timer.C:
				break settle
			}
		}

		start := time.Now()
		if _, err := runBuild(ctx, root, opts); err != nil {
			slog.Error("rebuild failed", logfields.Error(err))
			continue
		}
		fmt.Printf("Rebuilt in %s\n", time.Since(start).Round(time.Millisecond))
	}
}

func triggerRebuild(rebuilds chan<- struct{}) {
	select {
	case rebuilds <- struct{}{}:
	default: // a rebuild is already pending
	}
}

// watchRoots lists the source directories worth watching. Missing ones are
// skipped; a site without layouts is fine.
func watchRoots(cfg config.Config) []string {
	candidates := []string{
		cfg.Source.ContentDir,
		cfg.Source.LayoutsDir,
		cfg.Source.TemplatesDir,
		cfg.Source.LibDir,
	}
	var roots []string
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	return roots
}

// addRecursive registers dir and every subdirectory with the watcher;
// fsnotify itself does not recurse.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// relevantEvent filters watcher noise: editor temp files, chmod-only
// events, and site-root events for anything but the rules and config files.
func relevantEvent(event fsnotify.Event, roots []string, rootFiles map[string]struct{}) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}

	dir := filepath.Dir(event.Name)
	if dir == "." {
		_, ok := rootFiles[base]
		return ok
	}
	for _, root := range roots {
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// startSchedule arranges periodic full rebuilds when the configuration
// asks for them. Useful with the git data source, where changes land
// remotely and no filesystem event ever fires.
func startSchedule(schedule string, rebuilds chan<- struct{}) (gocron.Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}
	interval, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Debug("scheduled rebuild triggered")
			triggerRebuild(rebuilds)
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule periodic rebuild: %w", err)
	}
	scheduler.Start()
	slog.Info("periodic rebuilds scheduled", slog.String("interval", interval.String()))
	return scheduler, nil
}
