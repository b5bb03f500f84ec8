// Package datasource defines the contract between the site aggregate and its
// pluggable content backends, and ships the built-in filesystem and git
// implementations.
//
// A data source returns records rather than bare entities: each record is a
// discriminated union over the typed entity and the legacy plain-map shape
// older backends produce. The site aggregate normalizes legacy records once
// at load time, emitting a deprecation warning.
package datasource

import (
	"context"
	"errors"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/plugin"
)

// DataSource provides the raw material a site is built from. All reads must
// happen inside Loading, which brackets them with Up and Down and guarantees
// Down on every exit path, including failures.
type DataSource interface {
	Name() string

	// Up acquires backing resources (directories, clones, connections);
	// Down releases them. Loading runs fn between the two.
	Up(ctx context.Context) error
	Down() error
	Loading(ctx context.Context, fn func() error) error

	Items(ctx context.Context) ([]ItemRecord, error)
	Defaults(ctx context.Context) (*content.Defaults, error)
	Layouts(ctx context.Context) ([]LayoutRecord, error)
	Templates(ctx context.Context) ([]TemplateRecord, error)
	CodeSnippets(ctx context.Context) ([]CodeRecord, error)
}

// ItemRecord is a discriminated union: exactly one of Item (typed) or Raw
// (legacy plain record) is set. Raw records use the keys "identifier",
// "content", "attributes", "binary" and "mtime".
type ItemRecord struct {
	Item *content.Item
	Raw  map[string]any
}

// Legacy reports whether the record carries the legacy plain-map shape.
func (r ItemRecord) Legacy() bool { return r.Item == nil }

// LayoutRecord mirrors ItemRecord for layouts.
type LayoutRecord struct {
	Layout *content.Layout
	Raw    map[string]any
}

// Legacy reports whether the record carries the legacy plain-map shape.
func (r LayoutRecord) Legacy() bool { return r.Layout == nil }

// TemplateRecord mirrors ItemRecord for scaffolding templates. Raw records
// use the keys "name", "content" and "attributes".
type TemplateRecord struct {
	Template *content.Template
	Raw      map[string]any
}

// Legacy reports whether the record carries the legacy plain-map shape.
func (r TemplateRecord) Legacy() bool { return r.Template == nil }

// CodeRecord carries either a typed code snippet or legacy bare source text.
type CodeRecord struct {
	Snippet *content.CodeSnippet
	Raw     string
}

// Legacy reports whether the record carries bare source text.
func (r CodeRecord) Legacy() bool { return r.Snippet == nil }

// Factory builds a data source for a site rooted at root. Factories are
// registered in the plugin registry under KindDataSource and resolved by
// symbolic name from the site configuration.
type Factory func(root string, cfg *config.Config) (DataSource, error)

// bracket runs fn between Up and Down. Down runs on every exit path; its
// error joins fn's.
func bracket(ctx context.Context, ds DataSource, fn func() error) (err error) {
	if err = ds.Up(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := ds.Down(); derr != nil {
			err = errors.Join(err, derr)
		}
	}()
	return fn()
}

func init() {
	plugin.Register(plugin.KindDataSource, "filesystem", Factory(func(root string, cfg *config.Config) (DataSource, error) {
		return NewFilesystem(root, cfg), nil
	}))
	plugin.Register(plugin.KindDataSource, "git", Factory(NewGit))
}
