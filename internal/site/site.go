// Package site assembles the in-memory build graph. A Site merges the
// caller's configuration over the documented defaults, resolves its data
// source and router by name through the plugin registry, and owns the loaded
// collections of items, layouts, and templates together with their derived
// parent/child links. The compiler consumes a Site through compile.Provider.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/datasource"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/metrics"
	"github.com/xavier/nanoc/internal/plugin"
	"github.com/xavier/nanoc/internal/router"
	"github.com/xavier/nanoc/internal/script"
)

// Site is the aggregate root of one static site. Collections are mutated
// only by LoadData; during a compilation pass they are read-only.
type Site struct {
	root string
	cfg  config.Config

	registry *plugin.Registry
	recorder metrics.Recorder

	ds     datasource.DataSource
	loader *script.Loader
	rtr    router.Router

	items     []*content.Item
	layouts   []*content.Layout
	templates []*content.Template
	defaults  *content.Defaults
	snippets  []*content.CodeSnippet

	dataLoaded bool
}

var _ compile.Provider = (*Site)(nil)

// Option configures a Site before its data source is resolved.
type Option func(*Site)

// WithRegistry swaps the plugin registry data sources, routers, and
// snippet-defined extensions are resolved from.
func WithRegistry(reg *plugin.Registry) Option {
	return func(s *Site) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithRecorder swaps the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Site) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// New builds a Site rooted at root. The overlay configuration is merged over
// config.Default; the configured data source is resolved immediately, and an
// unregistered name is fatal. The router is deliberately not resolved here:
// code snippets may define it, so resolution waits until after LoadCode.
func New(root string, overlay config.Config, opts ...Option) (*Site, error) {
	s := &Site{
		root:     root,
		cfg:      config.Merge(config.Default(), overlay),
		registry: plugin.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = script.NewLoader(s.registry)

	impl, ok := s.registry.Find(plugin.KindDataSource, s.cfg.DataSource)
	if !ok {
		return nil, nanocerr.NewUnknownDataSource(s.cfg.DataSource)
	}
	factory, ok := impl.(datasource.Factory)
	if !ok {
		return nil, nanocerr.InternalError(fmt.Sprintf("data source %q registered with wrong type", s.cfg.DataSource), nil)
	}
	ds, err := factory(root, &s.cfg)
	if err != nil {
		return nil, nanocerr.DataSourceFailed(s.cfg.DataSource, err)
	}
	s.ds = ds
	return s, nil
}

// Boot prepares the site for compilation: code snippets load first (they
// may register filters and routers), the router resolves next, and the data
// collections load last. Boot after a completed load is a no-op.
func (s *Site) Boot(ctx context.Context) error {
	return s.LoadData(ctx, false)
}

// LoadCode fetches and evaluates the site's code snippets inside a data
// source bracket. Snippets load exactly once per process unless forced.
// LoadData runs this too; calling it directly is for callers that need the
// snippet-defined plugins without the collections.
func (s *Site) LoadCode(ctx context.Context, force bool) error {
	if s.loader.Loaded() && !force {
		return nil
	}
	err := s.ds.Loading(ctx, func() error {
		return s.loadCode(ctx, force)
	})
	return s.classify(err)
}

// LoadData populates the item, layout, and template collections. It is
// idempotent unless forced; a forced load re-fetches everything, re-runs
// code snippets, re-resolves the router, and rebuilds parent/child links.
// All reads happen inside a single data source bracket so backing resources
// are acquired and released exactly once per load.
func (s *Site) LoadData(ctx context.Context, force bool) error {
	if s.dataLoaded && !force {
		return nil
	}
	if force {
		s.rtr = nil
	}

	start := time.Now()
	err := s.ds.Loading(ctx, func() error {
		if err := s.loadCode(ctx, force); err != nil {
			return err
		}
		if err := s.resolveRouter(); err != nil {
			return err
		}
		return s.loadCollections(ctx)
	})
	s.recorder.ObserveDataSourceLoad(s.ds.Name(), time.Since(start), err == nil)
	if err != nil {
		return s.classify(err)
	}

	s.dataLoaded = true
	slog.Info("site data loaded",
		logfields.DataSource(s.ds.Name()),
		logfields.Router(s.rtr.Name()),
		logfields.Count(len(s.items)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return nil
}

// Config returns the merged site configuration.
func (s *Site) Config() *config.Config { return &s.cfg }

// Items returns the loaded items. Empty before LoadData completes.
func (s *Site) Items() []*content.Item { return s.items }

// Layouts returns the loaded layouts. Empty before LoadData completes.
func (s *Site) Layouts() []*content.Layout { return s.layouts }

// Templates returns the loaded scaffolding templates.
func (s *Site) Templates() []*content.Template { return s.templates }

// TemplateNamed returns the scaffolding template with the given name.
func (s *Site) TemplateNamed(name string) (*content.Template, bool) {
	for _, t := range s.templates {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Defaults returns the site-wide default attributes. Never nil after
// LoadData completes.
func (s *Site) Defaults() *content.Defaults { return s.defaults }

// CodeSnippets returns the snippets evaluated by the last code load, for
// cache invalidation decisions. Mutating them has no effect on the plugins
// they registered.
func (s *Site) CodeSnippets() []*content.CodeSnippet { return s.snippets }

// Router returns the resolved router, or nil before LoadData (or LoadCode
// followed by a load) completes.
func (s *Site) Router() router.Router { return s.rtr }

// DataSource returns the resolved data source.
func (s *Site) DataSource() datasource.DataSource { return s.ds }

// loadCode fetches code snippets and feeds them to the script loader. The
// caller must hold the data source open.
func (s *Site) loadCode(ctx context.Context, force bool) error {
	if s.loader.Loaded() && !force {
		return nil
	}
	records, err := s.ds.CodeSnippets(ctx)
	if err != nil {
		return fmt.Errorf("loading code snippets: %w", err)
	}

	snippets := make([]*content.CodeSnippet, 0, len(records))
	legacy := 0
	for _, r := range records {
		if r.Legacy() {
			legacy++
			snippets = append(snippets, &content.CodeSnippet{Filename: "code", Source: []byte(r.Raw)})
			continue
		}
		snippets = append(snippets, r.Snippet)
	}
	if legacy > 0 {
		slog.Warn("data source returned bare code strings; return typed snippets instead",
			logfields.DataSource(s.ds.Name()), logfields.Count(legacy))
	}
	s.snippets = snippets
	return s.loader.Load(ctx, snippets, force)
}

// resolveRouter binds the configured router name to an implementation. It
// runs after loadCode so snippet-registered routers resolve like built-ins.
func (s *Site) resolveRouter() error {
	if s.rtr != nil {
		return nil
	}
	impl, ok := s.registry.Find(plugin.KindRouter, s.cfg.Router)
	if !ok {
		return nanocerr.NewUnknownRouter(s.cfg.Router)
	}
	factory, ok := impl.(router.Factory)
	if !ok {
		return nanocerr.InternalError(fmt.Sprintf("router %q registered with wrong type", s.cfg.Router), nil)
	}
	r, err := factory(&s.cfg)
	if err != nil {
		return nanocerr.InternalError(fmt.Sprintf("constructing router %q", s.cfg.Router), err)
	}
	s.rtr = r
	return nil
}

// loadCollections fetches and normalizes every collection, then attaches
// back-references and derives the item hierarchy. The caller must hold the
// data source open.
func (s *Site) loadCollections(ctx context.Context) error {
	itemRecords, err := s.ds.Items(ctx)
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	defaults, err := s.ds.Defaults(ctx)
	if err != nil {
		return fmt.Errorf("loading defaults: %w", err)
	}
	layoutRecords, err := s.ds.Layouts(ctx)
	if err != nil {
		return fmt.Errorf("loading layouts: %w", err)
	}
	templateRecords, err := s.ds.Templates(ctx)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	if defaults == nil {
		defaults = &content.Defaults{Attributes: map[string]any{}}
	}
	s.defaults = defaults
	s.items = s.normalizeItems(itemRecords)
	s.layouts = s.normalizeLayouts(layoutRecords)
	s.templates = s.normalizeTemplates(templateRecords)

	for _, item := range s.items {
		item.Attributes = content.MergeAttributes(s.defaults.Attributes, item.Attributes)
		item.AttachSite(s)
	}
	for _, layout := range s.layouts {
		layout.AttachSite(s)
	}
	linkFamily(s.items)
	return nil
}

func (s *Site) normalizeItems(records []datasource.ItemRecord) []*content.Item {
	items := make([]*content.Item, 0, len(records))
	legacy := 0
	for _, r := range records {
		if !r.Legacy() {
			items = append(items, r.Item)
			continue
		}
		legacy++
		items = append(items, itemFromRaw(r.Raw))
	}
	s.warnLegacy("items", legacy)
	return items
}

func (s *Site) normalizeLayouts(records []datasource.LayoutRecord) []*content.Layout {
	layouts := make([]*content.Layout, 0, len(records))
	legacy := 0
	for _, r := range records {
		if !r.Legacy() {
			layouts = append(layouts, r.Layout)
			continue
		}
		legacy++
		layouts = append(layouts, layoutFromRaw(r.Raw))
	}
	s.warnLegacy("layouts", legacy)
	return layouts
}

func (s *Site) normalizeTemplates(records []datasource.TemplateRecord) []*content.Template {
	templates := make([]*content.Template, 0, len(records))
	legacy := 0
	for _, r := range records {
		if !r.Legacy() {
			templates = append(templates, r.Template)
			continue
		}
		legacy++
		templates = append(templates, templateFromRaw(r.Raw))
	}
	s.warnLegacy("templates", legacy)
	return templates
}

func (s *Site) warnLegacy(kind string, n int) {
	if n == 0 {
		return
	}
	slog.Warn("data source returned legacy raw records; return typed entities instead",
		logfields.DataSource(s.ds.Name()), slog.String("kind", kind), logfields.Count(n))
}

// classify stamps the data-source category on errors that escaped the load
// unclassified. Script and configuration errors pass through untouched.
func (s *Site) classify(err error) error {
	if err == nil {
		return nil
	}
	var be *nanocerr.BuildError
	if errors.As(err, &be) {
		return err
	}
	return nanocerr.DataSourceFailed(s.ds.Name(), err)
}

// linkFamily derives parent/child links from identifier prefixes. Links are
// rebuilt from scratch on every call so a forced reload never duplicates
// children. The root and items whose computed parent is not loaded simply
// have no parent.
func linkFamily(items []*content.Item) {
	byIdentifier := make(map[string]*content.Item, len(items))
	for _, item := range items {
		item.Parent = nil
		item.Children = nil
		byIdentifier[item.Identifier] = item
	}
	for _, item := range items {
		parentID, ok := content.ParentIdentifier(item.Identifier)
		if !ok {
			continue
		}
		parent, ok := byIdentifier[parentID]
		if !ok {
			continue
		}
		item.Parent = parent
		parent.Children = append(parent.Children, item)
	}
}

// itemFromRaw applies the backward-compatibility shim for data sources that
// still return plain maps instead of typed items.
func itemFromRaw(raw map[string]any) *content.Item {
	return &content.Item{
		Identifier: content.CleanIdentifier(stringField(raw, "identifier")),
		RawContent: bytesField(raw, "content"),
		Attributes: mapField(raw, "attributes"),
		Binary:     boolField(raw, "binary"),
		Mtime:      timeField(raw, "mtime"),
	}
}

func layoutFromRaw(raw map[string]any) *content.Layout {
	return &content.Layout{
		Identifier: content.CleanIdentifier(stringField(raw, "identifier")),
		RawContent: bytesField(raw, "content"),
		Attributes: mapField(raw, "attributes"),
		Mtime:      timeField(raw, "mtime"),
	}
}

func templateFromRaw(raw map[string]any) *content.Template {
	return &content.Template{
		Name:       stringField(raw, "name"),
		Content:    bytesField(raw, "content"),
		Attributes: mapField(raw, "attributes"),
		Mtime:      timeField(raw, "mtime"),
	}
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func bytesField(raw map[string]any, key string) []byte {
	switch v := raw[key].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func mapField(raw map[string]any, key string) map[string]any {
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}

func timeField(raw map[string]any, key string) time.Time {
	t, _ := raw[key].(time.Time)
	return t
}
