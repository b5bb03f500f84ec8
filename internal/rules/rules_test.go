package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/content"
)

func item(identifier string) *content.Item {
	return &content.Item{Identifier: identifier, Attributes: map[string]any{}}
}

func TestFirstMatchingCompileRuleWins(t *testing.T) {
	s := New().
		Compile("/posts/**", "", []compile.Step{compile.FilterStep("markdown", nil)}).
		Compile("/**", "", nil)

	steps, ok := s.CompileStepsFor(item("/posts/first/"), "default")
	require.True(t, ok)
	require.Len(t, steps, 1)
	require.Equal(t, "markdown", steps[0].Name)

	steps, ok = s.CompileStepsFor(item("/about/"), "default")
	require.True(t, ok)
	require.Empty(t, steps)
}

func TestPatternSemantics(t *testing.T) {
	cases := []struct {
		pattern    string
		identifier string
		want       bool
	}{
		{"/posts/**", "/posts/first/", true},
		{"/posts/**", "/posts/2025/deep/entry/", true},
		{"/posts/**", "/posts/", true},
		{"/posts/**", "/about/", false},
		{"/*", "/about/", true},
		{"/*", "/posts/first/", false},
		{"/**", "/", true},
		{"/**", "/anything/at/all/", true},
		{"/css/site/", "/css/site/", true},
		{"/css/site/", "/css/site/print/", false},
	}
	for _, tc := range cases {
		got := matchIdentifier(tc.pattern, tc.identifier)
		require.Equal(t, tc.want, got, "pattern %q vs %q", tc.pattern, tc.identifier)
	}
}

func TestCompileRulesBindPerRep(t *testing.T) {
	s := New().
		Compile("/posts/**", "rss", []compile.Step{compile.FilterStep("rssify", nil)}).
		Compile("/posts/**", "", []compile.Step{compile.FilterStep("markdown", nil)})

	steps, ok := s.CompileStepsFor(item("/posts/first/"), "rss")
	require.True(t, ok)
	require.Equal(t, "rssify", steps[0].Name)

	steps, ok = s.CompileStepsFor(item("/posts/first/"), "")
	require.True(t, ok)
	require.Equal(t, "markdown", steps[0].Name)

	_, ok = s.CompileStepsFor(item("/posts/first/"), "print")
	require.False(t, ok)
}

func TestRepNamesDefaultToDefault(t *testing.T) {
	s := New().Reps("/posts/**", "default", "rss")

	require.Equal(t, []string{"default", "rss"}, s.RepNamesFor(item("/posts/first/")))
	require.Equal(t, []string{compile.DefaultRep}, s.RepNamesFor(item("/about/")))
}

func TestLayoutBindings(t *testing.T) {
	s := New().
		Layout("/partials/**", "erb-compat", map[string]any{"trim": true}).
		Layout("/**", "gotemplate", nil)

	name, args, ok := s.LayoutFilterFor(&content.Layout{Identifier: "/partials/nav/"})
	require.True(t, ok)
	require.Equal(t, "erb-compat", name)
	require.Equal(t, map[string]any{"trim": true}, args)

	name, _, ok = s.LayoutFilterFor(&content.Layout{Identifier: "/default/"})
	require.True(t, ok)
	require.Equal(t, "gotemplate", name)

	_, _, ok = New().LayoutFilterFor(&content.Layout{Identifier: "/default/"})
	require.False(t, ok)
}

func TestRoutingOverrides(t *testing.T) {
	s := New().
		Route("/tmp/**", "", compile.RouteOverride{Skip: true}).
		Route("/feed/", "", compile.RouteOverride{Extension: "xml"}).
		Route("/css/site/", "print", compile.RouteOverride{Path: "/print.css"})

	over, ok := s.RoutingRuleFor(item("/tmp/scratch/"), "default")
	require.True(t, ok)
	require.True(t, over.Skip)

	over, ok = s.RoutingRuleFor(item("/feed/"), "default")
	require.True(t, ok)
	require.Equal(t, "xml", over.Extension)

	over, ok = s.RoutingRuleFor(item("/css/site/"), "print")
	require.True(t, ok)
	require.Equal(t, "/print.css", over.Path)

	_, ok = s.RoutingRuleFor(item("/css/site/"), "default")
	require.False(t, ok)
}

func TestDefaultRulesCompileEverything(t *testing.T) {
	s := Default()
	steps, ok := s.CompileStepsFor(item("/"), "default")
	require.True(t, ok)
	require.Empty(t, steps)
	steps, ok = s.CompileStepsFor(item("/deep/nested/page/"), "default")
	require.True(t, ok)
	require.Empty(t, steps)
}

func TestParseFullDocument(t *testing.T) {
	doc := `
compile:
  - pattern: "/posts/**"
    steps:
      - filter: markdown
        args: {smart: true}
      - snapshot: mid
      - layout: /default/
  - pattern: "/**"
    steps: []
reps:
  - pattern: "/posts/**"
    names: [default, rss]
layouts:
  - pattern: "/**"
    filter: gotemplate
routes:
  - pattern: "/sitemap/"
    extension: xml
  - pattern: "/drafts/**"
    skip: true
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	steps, ok := s.CompileStepsFor(item("/posts/hello/"), "default")
	require.True(t, ok)
	require.Len(t, steps, 3)
	require.Equal(t, compile.StepFilter, steps[0].Kind)
	require.Equal(t, map[string]any{"smart": true}, steps[0].Args)
	require.Equal(t, compile.StepSnapshot, steps[1].Kind)
	require.Equal(t, "mid", steps[1].Name)
	require.Equal(t, compile.StepLayout, steps[2].Kind)
	require.Equal(t, "/default/", steps[2].Name)

	require.Equal(t, []string{"default", "rss"}, s.RepNamesFor(item("/posts/hello/")))

	name, _, ok := s.LayoutFilterFor(&content.Layout{Identifier: "/default/"})
	require.True(t, ok)
	require.Equal(t, "gotemplate", name)

	over, ok := s.RoutingRuleFor(item("/sitemap/"), "default")
	require.True(t, ok)
	require.Equal(t, "xml", over.Extension)
}

func TestParseRejectsAmbiguousSteps(t *testing.T) {
	_, err := Parse([]byte(`
compile:
  - pattern: "/**"
    steps:
      - filter: markdown
        layout: /default/
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one of")
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte(`
compile:
  - pattern: "/posts/["
    steps: []
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid pattern")
}

func TestParseRejectsEmptyRouteOverride(t *testing.T) {
	_, err := Parse([]byte(`
routes:
  - pattern: "/x/"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "one of path, extension, or skip")
}

func TestLoadReadsRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compile:\n  - pattern: \"/**\"\n    steps: []\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	_, ok := s.CompileStepsFor(item("/x/"), "default")
	require.True(t, ok)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
