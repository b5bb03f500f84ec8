// Package script evaluates user-supplied Go snippets at load time. Snippets
// extend a site with custom filters and routers without recompiling the
// binary; they are interpreted, not compiled, so they pay for flexibility
// with speed and a stdlib-only import surface.
package script

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/plugin"
	"github.com/xavier/nanoc/internal/router"
)

// Loader evaluates code snippets into a shared interpreter and records the
// filters and routers they register.
//
// Snippets are plain Go files under the site's lib directory. They import
// the virtual "nanoc" package and register extensions from top-level
// variable initializers, which the interpreter is guaranteed to execute:
//
//	package main
//
//	import "nanoc"
//
//	var _ = nanoc.RegisterFilter("shout", func(content string, args map[string]interface{}) (string, error) {
//		return strings.ToUpper(content), nil
//	})
//
// All snippets of one Load call share a single interpreter, so a helper
// declared in one file is visible to the others.
type Loader struct {
	registry *plugin.Registry
	loaded   bool
}

// NewLoader builds a loader that registers into reg, defaulting to the
// process-wide plugin registry.
func NewLoader(reg *plugin.Registry) *Loader {
	if reg == nil {
		reg = plugin.Default()
	}
	return &Loader{registry: reg}
}

// Loaded reports whether a Load call has completed.
func (l *Loader) Loaded() bool { return l.loaded }

// Load evaluates all snippets in order. Loading is idempotent: once loaded,
// further calls are no-ops unless force is set. A snippet that fails to
// evaluate aborts the load with the snippet's filename attached; earlier
// registrations stick, since the registry has no transactions.
func (l *Loader) Load(ctx context.Context, snippets []*content.CodeSnippet, force bool) error {
	if l.loaded && !force {
		return nil
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nanocerr.InternalError("script interpreter setup failed", err)
	}
	exports := interp.Exports{
		"nanoc/nanoc": {
			"RegisterFilter": reflect.ValueOf(l.registerFilter),
			"RegisterRouter": reflect.ValueOf(l.registerRouter),
		},
	}
	if err := i.Use(exports); err != nil {
		return nanocerr.InternalError("script interpreter setup failed", err)
	}

	for _, sn := range snippets {
		if strings.TrimSpace(string(sn.Source)) == "" {
			continue
		}
		if _, err := i.EvalWithContext(ctx, string(sn.Source)); err != nil {
			return nanocerr.ScriptFailed(sn.Filename, err)
		}
		slog.Debug("code snippet loaded", logfields.Snippet(sn.Filename))
	}

	l.loaded = true
	slog.Info("code snippets loaded", logfields.Count(len(snippets)))
	return nil
}

// registerFilter is exposed to snippets as nanoc.RegisterFilter. The bool
// return lets snippets register from a top-level "var _ =" initializer.
func (l *Loader) registerFilter(name string, fn func(string, map[string]interface{}) (string, error)) bool {
	l.registry.Register(plugin.KindFilter, name, &scriptFilter{name: name, fn: fn})
	return true
}

// registerRouter is exposed to snippets as nanoc.RegisterRouter.
func (l *Loader) registerRouter(name string, fn func(string, string) (string, error)) bool {
	r := &snippetRouter{name: name, fn: fn}
	l.registry.Register(plugin.KindRouter, name, router.Factory(func(*config.Config) (router.Router, error) {
		return r, nil
	}))
	return true
}

// scriptFilter adapts a snippet-registered function to the filter contract.
// Snippet filters are textual only.
type scriptFilter struct {
	name string
	fn   func(string, map[string]interface{}) (string, error)
}

func (f *scriptFilter) Name() string         { return f.name }
func (f *scriptFilter) SupportsBinary() bool { return false }

func (f *scriptFilter) Apply(_ context.Context, src []byte, _ compile.Assigns, args map[string]any) ([]byte, error) {
	out, err := f.fn(string(src), args)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// snippetRouter adapts a snippet-registered function to the router
// contract. The function sees the identifier and rep name only.
type snippetRouter struct {
	name string
	fn   func(string, string) (string, error)
}

func (r *snippetRouter) Name() string { return r.name }

func (r *snippetRouter) RoutePath(item *content.Item, repName string) (string, error) {
	return r.fn(item.Identifier, repName)
}
