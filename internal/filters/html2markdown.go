package filters

import (
	"context"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

// HTML2Markdown converts HTML back into Markdown. Useful for text-only
// representations of HTML-authored content, e.g. a plain-text feed rep. An
// optional domain argument absolutizes relative links against that host.
type HTML2Markdown struct{}

func (HTML2Markdown) Name() string         { return "html2markdown" }
func (HTML2Markdown) SupportsBinary() bool { return false }

func (HTML2Markdown) Apply(_ context.Context, src []byte, _ compile.Assigns, args map[string]any) ([]byte, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	var opts []converter.ConvertOptionFunc
	if domain, ok := args["domain"].(string); ok && domain != "" {
		opts = append(opts, converter.WithDomain(domain))
	}
	out, err := conv.ConvertString(string(src), opts...)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func init() {
	plugin.Register(plugin.KindFilter, "html2markdown", HTML2Markdown{})
}
