package filters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

// relAttrs are the attributes whose site-absolute values get rewritten.
var relAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"action": true,
	"poster": true,
}

var cssURL = regexp.MustCompile(`url\((['"]?)(/[^'")]*)(['"]?)\)`)

// RelativizePaths rewrites site-absolute references ("/css/site.css") into
// relative ones ("../../css/site.css") so the output tree can be served
// from any prefix or straight off the filesystem. The rewrite depth comes
// from the representation's routed output path, so this filter only works
// on reps that are written somewhere. Pass type: css for stylesheets; the
// default handles HTML.
type RelativizePaths struct{}

func (RelativizePaths) Name() string         { return "relativize_paths" }
func (RelativizePaths) SupportsBinary() bool { return false }

func (RelativizePaths) Apply(_ context.Context, src []byte, a compile.Assigns, args map[string]any) ([]byte, error) {
	if a.Rep == nil {
		return nil, fmt.Errorf("relativize_paths needs a representation")
	}
	outPath, routed := a.Rep.Path()
	if !routed || outPath == "" {
		return nil, fmt.Errorf("relativize_paths needs a routed output path")
	}
	depth := strings.Count(strings.TrimPrefix(outPath, "/"), "/")

	if kind, ok := args["type"].(string); ok && kind != "" && kind != "html" {
		if kind != "css" {
			return nil, fmt.Errorf("unknown relativize type %q", kind)
		}
		return relativizeCSS(src, depth), nil
	}
	return relativizeHTML(src, depth)
}

func relativizeHTML(src []byte, depth int) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return out.Bytes(), nil
			}
			return nil, z.Err()
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}

		tok := z.Token()
		changed := false
		for i, attr := range tok.Attr {
			if !relAttrs[attr.Key] {
				continue
			}
			if nv, ok := relativize(attr.Val, depth); ok {
				tok.Attr[i].Val = nv
				changed = true
			}
		}
		// Unmodified tags pass through verbatim; only rewritten ones are
		// re-serialized.
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(z.Raw())
		}
	}
}

func relativizeCSS(src []byte, depth int) []byte {
	return cssURL.ReplaceAllFunc(src, func(m []byte) []byte {
		sub := cssURL.FindSubmatch(m)
		if nv, ok := relativize(string(sub[2]), depth); ok {
			return []byte(fmt.Sprintf("url(%s%s%s)", sub[1], nv, sub[3]))
		}
		return m
	})
}

// relativize rewrites one site-absolute reference. Protocol-relative URLs
// ("//cdn...") and anything not starting with "/" are left alone.
func relativize(val string, depth int) (string, bool) {
	if !strings.HasPrefix(val, "/") || strings.HasPrefix(val, "//") {
		return "", false
	}
	rel := strings.Repeat("../", depth) + strings.TrimPrefix(val, "/")
	if rel == "" {
		rel = "./"
	}
	return rel, true
}

func init() {
	plugin.Register(plugin.KindFilter, "relativize_paths", RelativizePaths{})
}
