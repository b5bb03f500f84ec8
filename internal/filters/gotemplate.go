package filters

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

// GoTemplate executes the source as a text/template. The template sees the
// full assigns plus Content, the representation's current content, which is
// how layouts interpolate the item they wrap:
//
//	<article>{{.Content}}</article>
//
// Attribute access goes through the attr helper so site-wide defaults apply:
//
//	<title>{{attr "title"}}</title>
//
// GoTemplate is also the fallback renderer for layouts that no rule binds
// to a filter.
type GoTemplate struct{}

func (GoTemplate) Name() string         { return "gotemplate" }
func (GoTemplate) SupportsBinary() bool { return false }

type templateData struct {
	compile.Assigns
	Content string
}

func (GoTemplate) Apply(_ context.Context, src []byte, a compile.Assigns, args map[string]any) ([]byte, error) {
	data := templateData{Assigns: a}
	if a.Rep != nil {
		data.Content = string(a.Rep.Last())
	}

	funcs := template.FuncMap{
		"attr": func(key string) any {
			v, _ := a.ItemAttr(key)
			return v
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
	}

	name := "content"
	if a.Item != nil {
		name = a.Item.Identifier
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(src))
	if err != nil {
		return nil, err
	}
	if s, ok := args["missingkey"].(string); ok && s != "" {
		tmpl = tmpl.Option("missingkey=" + s)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	plugin.Register(plugin.KindFilter, "gotemplate", GoTemplate{})
}
