// Package content defines the entities a site is built from: items, layouts,
// global defaults, templates, and code snippets. Entities are loaded once by
// the site aggregate and are not mutated during compilation; compilation
// happens on derived item representations.
package content

import (
	"time"
)

// Owner is the narrow view of the owning site attached to every entity at
// load time, giving filters and layouts access to sibling collections.
type Owner interface {
	Items() []*Item
	Layouts() []*Layout
}

// Item is a single content unit with a hierarchical identifier.
type Item struct {
	// Identifier is the cleaned hierarchical path, e.g. "/foo/bar/".
	Identifier string

	// RawContent is the source content as loaded. Immutable after load.
	RawContent []byte

	// Attributes carries arbitrary metadata (usually from frontmatter),
	// merged over the site-wide defaults at load time.
	Attributes map[string]any

	// Binary marks content that must never pass through textual filters.
	Binary bool

	// Mtime is the source modification time, used as a cache hint only.
	Mtime time.Time

	// Parent and Children are derived from identifier prefixes by the site
	// aggregate after loading. An item has at most one parent; the root
	// identifier "/" has none.
	Parent   *Item
	Children []*Item

	site Owner
}

// AttachSite sets the owning site reference. Called once during load.
func (i *Item) AttachSite(s Owner) { i.site = s }

// Site returns the owning site, or nil before load completes.
func (i *Item) Site() Owner { return i.site }

// Attr returns an attribute value and whether it was present.
func (i *Item) Attr(key string) (any, bool) {
	v, ok := i.Attributes[key]
	return v, ok
}

// StringAttr returns a string attribute, or fallback when absent or not a
// string.
func (i *Item) StringAttr(key, fallback string) string {
	if v, ok := i.Attributes[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// Layout is a reusable template addressed by its cleaned identifier.
type Layout struct {
	Identifier string
	RawContent []byte
	Attributes map[string]any
	Mtime      time.Time

	site Owner
}

// AttachSite sets the owning site reference. Called once during load.
func (l *Layout) AttachSite(s Owner) { l.site = s }

// Site returns the owning site, or nil before load completes.
func (l *Layout) Site() Owner { return l.site }

// Defaults carries site-wide default attributes applied under each item's own
// attributes.
type Defaults struct {
	Attributes map[string]any
	Mtime      time.Time
}

// Template is scaffolding for new items: a named starting point of
// attributes and body content, consumed by the create-item command rather
// than the compiler.
type Template struct {
	Name       string
	Content    []byte
	Attributes map[string]any
	Mtime      time.Time
}

// CodeSnippet is user-supplied site customization code. Mtime is an opaque
// cache-invalidation hint passed through from the data source; the core only
// ever compares it.
type CodeSnippet struct {
	Filename string
	Source   []byte
	Mtime    time.Time
}

// MergeAttributes layers item attributes over defaults without mutating
// either map. Item keys win.
func MergeAttributes(defaults, attrs map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(attrs))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
