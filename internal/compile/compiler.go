// Package compile drives items through their rule-specified filter and
// layout sequences. Each item representation carries named snapshots of its
// content; steps operate on the active "last" snapshot and replace it on
// success. Compilation is strictly sequential: correctness of assigns and
// snapshot ordering is prioritized over parallel throughput.
package compile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/metrics"
	"github.com/xavier/nanoc/internal/plugin"
	"github.com/xavier/nanoc/internal/router"
)

// FallbackLayoutFilter renders layouts that neither the rules nor the
// layout's own "filter" attribute bind to a filter.
const FallbackLayoutFilter = "gotemplate"

// Provider is the site-aggregate view the compiler consumes.
type Provider interface {
	content.Owner
	Config() *config.Config
	Defaults() *content.Defaults
	Router() router.Router
}

// Compiler compiles every representation of every site item according to a
// rule set. One Compiler instance drives one site; Run may be invoked again
// for subsequent passes.
type Compiler struct {
	site     Provider
	rules    RuleSet
	registry *plugin.Registry
	recorder metrics.Recorder
}

// NewCompiler builds a compiler over a site and its rules, using the
// default plugin registry and no metrics.
func NewCompiler(site Provider, rules RuleSet) *Compiler {
	return &Compiler{
		site:     site,
		rules:    rules,
		registry: plugin.Default(),
		recorder: metrics.NoopRecorder{},
	}
}

// WithRegistry swaps the plugin registry filters are resolved from.
func (c *Compiler) WithRegistry(reg *plugin.Registry) *Compiler {
	if reg != nil {
		c.registry = reg
	}
	return c
}

// WithRecorder swaps the metrics recorder.
func (c *Compiler) WithRecorder(rec metrics.Recorder) *Compiler {
	if rec != nil {
		c.recorder = rec
	}
	return c
}

// Run compiles all representations sequentially and returns them, routed
// and ready for the writer. A failing representation aborts that rep only;
// previously compiled reps keep their snapshots, and the per-rep failures
// come back joined.
func (c *Compiler) Run(ctx context.Context) ([]*ItemRep, error) {
	start := time.Now()
	items := c.site.Items()
	c.recorder.SetItemCount(len(items))

	var reps []*ItemRep
	var failures []error
	for _, item := range items {
		for _, repName := range c.rules.RepNamesFor(item) {
			rep := NewItemRep(item, repName)
			reps = append(reps, rep)
			if err := c.compileRep(ctx, rep); err != nil {
				failures = append(failures, err)
				slog.Error("representation failed",
					logfields.Item(item.Identifier),
					logfields.Rep(rep.Name),
					logfields.Error(err))
			}
		}
	}

	c.recorder.ObserveCompileDuration(time.Since(start))
	err := errors.Join(failures...)
	if err != nil {
		c.recorder.IncCompileOutcome("failed")
	} else {
		c.recorder.IncCompileOutcome("success")
	}
	slog.Info("compile pass finished",
		logfields.Count(len(reps)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return reps, err
}

func (c *Compiler) compileRep(ctx context.Context, rep *ItemRep) error {
	steps, ok := c.rules.CompileStepsFor(rep.Item, rep.Name)
	if !ok {
		return nanocerr.NewNoCompileRule(rep.Item.Identifier, rep.Name)
	}

	slog.Debug("compiling representation",
		logfields.Item(rep.Item.Identifier),
		logfields.Rep(rep.Name),
		logfields.Count(len(steps)))

	// Routing happens before any step runs: filters like relativize_paths
	// read the rep's output path while compiling.
	if _, err := c.pathFor(rep); err != nil {
		return nanocerr.RoutingFailed(rep.Item.Identifier, rep.Name, err)
	}

	proxy := NewProxy(rep, c)
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch step.Kind {
		case StepFilter:
			err = proxy.Filter(ctx, step.Name, step.Args)
		case StepLayout:
			err = proxy.Layout(ctx, step.Name)
		case StepSnapshot:
			proxy.Snapshot(Snapshot(step.Name))
		}
		if err != nil {
			return err
		}
	}

	rep.finalize()
	return nil
}

// assignsFor recomputes the binding environment for rep. It runs before
// every filter and layout step, so bindings always reflect the latest item
// state.
func (c *Compiler) assignsFor(rep *ItemRep) Assigns {
	var defaults map[string]any
	if d := c.site.Defaults(); d != nil {
		defaults = d.Attributes
	}
	return Assigns{
		Item:     rep.Item,
		Rep:      rep,
		Items:    c.site.Items(),
		Layouts:  c.site.Layouts(),
		Config:   c.site.Config(),
		Defaults: defaults,
	}
}

func (c *Compiler) applyFilter(ctx context.Context, rep *ItemRep, name string, args map[string]any) error {
	rep.installAssigns(c.assignsFor(rep))

	f, err := ResolveFilter(c.registry, name)
	if err != nil {
		return err
	}
	if rep.Binary && !f.SupportsBinary() {
		return nanocerr.NewBinaryFilterMismatch(name, rep.Item.Identifier, rep.Name)
	}
	return c.runFilter(ctx, rep, f, name, rep.Last(), args)
}

func (c *Compiler) applyLayout(ctx context.Context, rep *ItemRep, identifier string) error {
	rep.installAssigns(c.assignsFor(rep))

	layout := c.findLayout(identifier)
	if layout == nil {
		return nanocerr.NewUnknownLayout(identifier)
	}

	name, args, ok := c.rules.LayoutFilterFor(layout)
	if !ok {
		// Layouts may name their own filter in metadata; anything else
		// renders with the template filter.
		if attr, aok := layout.Attributes["filter"].(string); aok && attr != "" {
			name = attr
		} else {
			name = FallbackLayoutFilter
		}
	}
	f, err := ResolveFilter(c.registry, name)
	if err != nil {
		return err
	}
	if rep.Binary {
		return nanocerr.NewBinaryFilterMismatch(name, rep.Item.Identifier, rep.Name)
	}

	rep.captureIfAbsent(SnapshotPre)
	slog.Debug("applying layout",
		logfields.Item(rep.Item.Identifier),
		logfields.Rep(rep.Name),
		logfields.Layout(layout.Identifier),
		logfields.Filter(name))
	return c.runFilter(ctx, rep, f, name, layout.RawContent, args)
}

// runFilter executes a resolved filter over src and replaces the rep's last
// snapshot on success. On failure the prior snapshot stays un-replaced so
// the rep retains its last good state for inspection.
func (c *Compiler) runFilter(ctx context.Context, rep *ItemRep, f Filter, name string, src []byte, args map[string]any) error {
	start := time.Now()
	out, err := f.Apply(ctx, src, rep.Assigns(), args)
	c.recorder.ObserveFilterDuration(name, time.Since(start))
	if err != nil {
		c.recorder.IncFilterResult(name, metrics.ResultFailed)
		return nanocerr.FilterFailed(name, rep.Item.Identifier, rep.Name, err)
	}
	c.recorder.IncFilterResult(name, metrics.ResultSuccess)
	rep.setLast(out)
	return nil
}

// findLayout resolves a layout by exact match on cleaned identifiers.
func (c *Compiler) findLayout(identifier string) *content.Layout {
	want := content.CleanIdentifier(identifier)
	for _, l := range c.site.Layouts() {
		if content.CleanIdentifier(l.Identifier) == want {
			return l
		}
	}
	return nil
}

// pathFor routes a representation, preferring rule overrides over the site
// router, and caches the result on the rep.
func (c *Compiler) pathFor(rep *ItemRep) (string, error) {
	if rep.routed {
		return rep.path, nil
	}

	if ov, ok := c.rules.RoutingRuleFor(rep.Item, rep.Name); ok && !ov.Zero() {
		switch {
		case ov.Skip:
			rep.setPath("")
		case ov.Path != "":
			rep.setPath(router.WithRepSuffix(ov.Path, rep.Name))
		default:
			rep.setPath(router.WithRepSuffix(router.FileStyle(rep.Item.Identifier, ov.Extension), rep.Name))
		}
		return rep.path, nil
	}

	p, err := c.site.Router().RoutePath(rep.Item, rep.Name)
	if err != nil {
		return "", err
	}
	rep.setPath(p)
	return p, nil
}
