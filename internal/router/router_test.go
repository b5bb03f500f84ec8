package router

import (
	"testing"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
)

func newDefaultRouter(t *testing.T) Router {
	t.Helper()
	cfg := config.Default()
	r, err := NewDefault(&cfg)
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return r
}

func TestDefaultRouter_DirectoryStyle(t *testing.T) {
	r := newDefaultRouter(t)

	tests := []struct {
		identifier string
		rep        string
		want       string
	}{
		{"/", DefaultRep, "/index.html"},
		{"/about/", DefaultRep, "/about/index.html"},
		{"/posts/first/", DefaultRep, "/posts/first/index.html"},
		{"/about/", "raw", "/about/index-raw.html"},
	}
	for _, tt := range tests {
		item := &content.Item{Identifier: tt.identifier, Attributes: map[string]any{}}
		got, err := r.RoutePath(item, tt.rep)
		if err != nil {
			t.Fatalf("RoutePath(%s, %s): %v", tt.identifier, tt.rep, err)
		}
		if got != tt.want {
			t.Errorf("RoutePath(%s, %s) = %q, want %q", tt.identifier, tt.rep, got, tt.want)
		}
	}
}

func TestDefaultRouter_ExtensionAttribute(t *testing.T) {
	r := newDefaultRouter(t)

	item := &content.Item{Identifier: "/feed/", Attributes: map[string]any{"extension": "xml"}}
	got, err := r.RoutePath(item, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/feed.xml" {
		t.Errorf("got %q, want /feed.xml", got)
	}

	root := &content.Item{Identifier: "/", Attributes: map[string]any{"extension": "txt"}}
	got, err = r.RoutePath(root, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/index.txt" {
		t.Errorf("got %q, want /index.txt", got)
	}
}

func TestDefaultRouter_BinaryNeedsExtension(t *testing.T) {
	r := newDefaultRouter(t)

	withExt := &content.Item{Identifier: "/logo/", Binary: true, Attributes: map[string]any{"extension": "png"}}
	got, err := r.RoutePath(withExt, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/logo.png" {
		t.Errorf("got %q, want /logo.png", got)
	}

	bare := &content.Item{Identifier: "/blob/", Binary: true, Attributes: map[string]any{}}
	if _, err := r.RoutePath(bare, DefaultRep); err == nil {
		t.Error("expected an error for a binary item without an extension attribute")
	}
}

func TestDefaultRouter_CustomPathAndSkip(t *testing.T) {
	r := newDefaultRouter(t)

	custom := &content.Item{Identifier: "/styles/", Attributes: map[string]any{"custom_path": "/css/site.css"}}
	got, err := r.RoutePath(custom, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/css/site.css" {
		t.Errorf("got %q, want /css/site.css", got)
	}

	got, err = r.RoutePath(custom, "print")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/css/site-print.css" {
		t.Errorf("got %q, want /css/site-print.css", got)
	}

	skipped := &content.Item{Identifier: "/draft/", Attributes: map[string]any{"skip_output": true}}
	got, err = r.RoutePath(skipped, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty path for skip_output", got)
	}
}

func TestDefaultRouter_SlugsSegments(t *testing.T) {
	r := newDefaultRouter(t)

	item := &content.Item{Identifier: "/Über Uns/Das Team/", Attributes: map[string]any{}}
	got, err := r.RoutePath(item, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/uber-uns/das-team/index.html" {
		t.Errorf("got %q, want /uber-uns/das-team/index.html", got)
	}
}

func TestIdentityRouter_Verbatim(t *testing.T) {
	r, err := NewIdentity(nil)
	if err != nil {
		t.Fatal(err)
	}
	item := &content.Item{Identifier: "/robots.txt"}
	got, err := r.RoutePath(item, DefaultRep)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/robots.txt/" {
		t.Errorf("got %q, want /robots.txt/", got)
	}
}

func TestWithRepSuffix(t *testing.T) {
	tests := []struct {
		path, rep, want string
	}{
		{"/foo/index.html", DefaultRep, "/foo/index.html"},
		{"/foo/index.html", "", "/foo/index.html"},
		{"/foo/index.html", "raw", "/foo/index-raw.html"},
		{"/feed.xml", "short", "/feed-short.xml"},
		{"/no-extension", "raw", "/no-extension-raw"},
		{"", "raw", ""},
	}
	for _, tt := range tests {
		if got := WithRepSuffix(tt.path, tt.rep); got != tt.want {
			t.Errorf("WithRepSuffix(%q, %q) = %q, want %q", tt.path, tt.rep, got, tt.want)
		}
	}
}

func TestSlug_KeepsUnsluggableSegments(t *testing.T) {
	if got := Slug("/日本語/"); got != "/日本語/" {
		t.Errorf("got %q, want the original segment preserved", got)
	}
	if got := Slug("/Mixed CASE here/"); got != "/mixed-case-here/" {
		t.Errorf("got %q", got)
	}
}
