package filters

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", minhtml.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return m
}()

// Minify shrinks CSS, HTML, or JavaScript, registered under one name per
// media type.
type Minify struct {
	name      string
	mediatype string
}

func (f Minify) Name() string         { return f.name }
func (f Minify) SupportsBinary() bool { return false }

func (f Minify) Apply(_ context.Context, src []byte, _ compile.Assigns, _ map[string]any) ([]byte, error) {
	return minifier.Bytes(f.mediatype, src)
}

func init() {
	plugin.Register(plugin.KindFilter, "cssmin", Minify{name: "cssmin", mediatype: "text/css"})
	plugin.Register(plugin.KindFilter, "htmlmin", Minify{name: "htmlmin", mediatype: "text/html"})
	plugin.Register(plugin.KindFilter, "jsmin", Minify{name: "jsmin", mediatype: "application/javascript"})
}
