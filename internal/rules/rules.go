// Package rules holds a site's compilation instructions: which filter and
// layout steps each item representation runs through, which filter renders
// each layout, and where representations deviate from the site router.
//
// Rules bind to items by glob patterns over cleaned identifiers. "*"
// matches within one path segment, "**" spans segments, so "/posts/**"
// covers the whole subtree including "/posts/" itself. Rules are ordered;
// the first matching rule wins.
package rules

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/content"
)

type compileRule struct {
	pattern string
	rep     string
	steps   []compile.Step
}

type repRule struct {
	pattern string
	names   []string
}

type layoutRule struct {
	pattern string
	filter  string
	args    map[string]any
}

type routeRule struct {
	pattern string
	rep     string
	over    compile.RouteOverride
}

// Set is an ordered collection of rules implementing the compiler's rule
// contract. Build one programmatically with the chainable methods or load
// it from YAML with Parse/Load.
type Set struct {
	compile []compileRule
	reps    []repRule
	layouts []layoutRule
	routes  []routeRule
}

// New returns an empty rule set.
func New() *Set { return &Set{} }

// Default returns the rule set a freshly scaffolded site starts with:
// every item compiles unfiltered under its default representation.
func Default() *Set {
	return New().Compile("/**", "", nil)
}

// Compile appends a compile rule. An empty rep binds the rule to the
// default representation. Steps may be nil for a copy-through rule.
func (s *Set) Compile(pattern, rep string, steps []compile.Step) *Set {
	s.compile = append(s.compile, compileRule{pattern: pattern, rep: normalizeRep(rep), steps: steps})
	return s
}

// Reps appends a representation declaration: items matching pattern get
// the named representations instead of just the default one.
func (s *Set) Reps(pattern string, names ...string) *Set {
	s.reps = append(s.reps, repRule{pattern: pattern, names: names})
	return s
}

// Layout appends a layout-to-filter binding.
func (s *Set) Layout(pattern, filter string, args map[string]any) *Set {
	s.layouts = append(s.layouts, layoutRule{pattern: pattern, filter: filter, args: args})
	return s
}

// Route appends a routing override for representations matching pattern.
func (s *Set) Route(pattern, rep string, over compile.RouteOverride) *Set {
	s.routes = append(s.routes, routeRule{pattern: pattern, rep: normalizeRep(rep), over: over})
	return s
}

// RepNamesFor implements the rule contract. Without a matching reps
// declaration every item has exactly the default representation.
func (s *Set) RepNamesFor(item *content.Item) []string {
	for _, r := range s.reps {
		if matchIdentifier(r.pattern, item.Identifier) {
			return r.names
		}
	}
	return []string{compile.DefaultRep}
}

// CompileStepsFor implements the rule contract: first matching rule for
// the representation wins.
func (s *Set) CompileStepsFor(item *content.Item, rep string) ([]compile.Step, bool) {
	rep = normalizeRep(rep)
	for _, r := range s.compile {
		if r.rep == rep && matchIdentifier(r.pattern, item.Identifier) {
			return r.steps, true
		}
	}
	return nil, false
}

// LayoutFilterFor implements the rule contract.
func (s *Set) LayoutFilterFor(layout *content.Layout) (string, map[string]any, bool) {
	for _, r := range s.layouts {
		if matchIdentifier(r.pattern, layout.Identifier) {
			return r.filter, r.args, true
		}
	}
	return "", nil, false
}

// RoutingRuleFor implements the rule contract.
func (s *Set) RoutingRuleFor(item *content.Item, rep string) (compile.RouteOverride, bool) {
	rep = normalizeRep(rep)
	for _, r := range s.routes {
		if r.rep == rep && matchIdentifier(r.pattern, item.Identifier) {
			return r.over, true
		}
	}
	return compile.RouteOverride{}, false
}

func normalizeRep(rep string) string {
	if rep == "" {
		return compile.DefaultRep
	}
	return rep
}

// matchIdentifier matches a glob pattern against a cleaned identifier.
// Identifiers carry a trailing slash that patterns usually leave off, so a
// trimmed form is tried as well: "/posts/**" matches "/posts/first/".
func matchIdentifier(pattern, identifier string) bool {
	id := content.CleanIdentifier(identifier)
	if pattern == id {
		return true
	}
	if ok, err := doublestar.Match(pattern, id); err == nil && ok {
		return true
	}
	trimmed := strings.TrimSuffix(id, "/")
	if trimmed == "" {
		trimmed = "/"
	}
	ok, err := doublestar.Match(pattern, trimmed)
	return err == nil && ok
}

// The YAML document shape accepted by Parse:
//
//	compile:
//	  - pattern: "/posts/**"
//	    steps:
//	      - filter: markdown
//	      - layout: /default/
//	  - pattern: "/**"
//	    steps: []
//	reps:
//	  - pattern: "/posts/**"
//	    names: [default, rss]
//	layouts:
//	  - pattern: "/**"
//	    filter: gotemplate
//	routes:
//	  - pattern: "/sitemap/"
//	    extension: xml
type fileSpec struct {
	Compile []struct {
		Pattern string     `yaml:"pattern"`
		Rep     string     `yaml:"rep"`
		Steps   []stepSpec `yaml:"steps"`
	} `yaml:"compile"`
	Reps []struct {
		Pattern string   `yaml:"pattern"`
		Names   []string `yaml:"names"`
	} `yaml:"reps"`
	Layouts []struct {
		Pattern string         `yaml:"pattern"`
		Filter  string         `yaml:"filter"`
		Args    map[string]any `yaml:"args"`
	} `yaml:"layouts"`
	Routes []struct {
		Pattern   string `yaml:"pattern"`
		Rep       string `yaml:"rep"`
		Path      string `yaml:"path"`
		Extension string `yaml:"extension"`
		Skip      bool   `yaml:"skip"`
	} `yaml:"routes"`
}

type stepSpec struct {
	Filter   string         `yaml:"filter"`
	Args     map[string]any `yaml:"args"`
	Layout   string         `yaml:"layout"`
	Snapshot string         `yaml:"snapshot"`
}

func (sp stepSpec) step() (compile.Step, error) {
	set := 0
	for _, v := range []string{sp.Filter, sp.Layout, sp.Snapshot} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return compile.Step{}, fmt.Errorf("a step must name exactly one of filter, layout, or snapshot")
	}
	switch {
	case sp.Filter != "":
		return compile.FilterStep(sp.Filter, sp.Args), nil
	case sp.Layout != "":
		return compile.LayoutStep(sp.Layout), nil
	default:
		return compile.SnapshotStep(sp.Snapshot), nil
	}
}

// Parse builds a rule set from a YAML document, validating patterns and
// step shapes up front so broken rules fail the build before compilation
// starts.
func Parse(src []byte) (*Set, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(src, &spec); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	s := New()
	for i, r := range spec.Compile {
		if err := checkPattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("compile rule %d: %w", i+1, err)
		}
		steps := make([]compile.Step, 0, len(r.Steps))
		for j, sp := range r.Steps {
			step, err := sp.step()
			if err != nil {
				return nil, fmt.Errorf("compile rule %d step %d: %w", i+1, j+1, err)
			}
			steps = append(steps, step)
		}
		s.Compile(r.Pattern, r.Rep, steps)
	}
	for i, r := range spec.Reps {
		if err := checkPattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("reps rule %d: %w", i+1, err)
		}
		if len(r.Names) == 0 {
			return nil, fmt.Errorf("reps rule %d: names must not be empty", i+1)
		}
		s.Reps(r.Pattern, r.Names...)
	}
	for i, r := range spec.Layouts {
		if err := checkPattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("layout rule %d: %w", i+1, err)
		}
		if r.Filter == "" {
			return nil, fmt.Errorf("layout rule %d: filter must not be empty", i+1)
		}
		s.Layout(r.Pattern, r.Filter, r.Args)
	}
	for i, r := range spec.Routes {
		if err := checkPattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("route rule %d: %w", i+1, err)
		}
		over := compile.RouteOverride{Path: r.Path, Extension: r.Extension, Skip: r.Skip}
		if over.Zero() {
			return nil, fmt.Errorf("route rule %d: one of path, extension, or skip is required", i+1)
		}
		s.Route(r.Pattern, r.Rep, over)
	}
	return s, nil
}

// Load reads a rule set from a YAML file.
func Load(path string) (*Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	s, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func checkPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	return nil
}
