package filters

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

// Markdown renders Markdown to HTML with the GitHub-flavored extensions
// enabled. Inline HTML is escaped unless the rule passes unsafe: true.
type Markdown struct{}

func (Markdown) Name() string         { return "markdown" }
func (Markdown) SupportsBinary() bool { return false }

func (Markdown) Apply(_ context.Context, src []byte, _ compile.Assigns, args map[string]any) ([]byte, error) {
	opts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
	}
	if b, ok := args["unsafe"].(bool); ok && b {
		opts = append(opts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	if b, ok := args["hard_wraps"].(bool); ok && b {
		opts = append(opts, goldmark.WithRendererOptions(html.WithHardWraps()))
	}

	var buf bytes.Buffer
	if err := goldmark.New(opts...).Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	plugin.Register(plugin.KindFilter, "markdown", Markdown{})
	plugin.Register(plugin.KindFilter, "md", Markdown{})
}
