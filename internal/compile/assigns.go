package compile

import (
	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
)

// Assigns is the variable-binding environment visible to a filter or layout
// during a single step: the item under compilation, its rep, the full site
// collections, the merged configuration, and the global default attributes.
// The compiler recomputes assigns immediately before every step; they are
// never cached across steps.
type Assigns struct {
	Item     *content.Item
	Rep      *ItemRep
	Items    []*content.Item
	Layouts  []*content.Layout
	Config   *config.Config
	Defaults map[string]any
}

// ItemAttr reads an attribute of the current item, falling back to the
// site-wide defaults.
func (a Assigns) ItemAttr(key string) (any, bool) {
	if a.Item != nil {
		if v, ok := a.Item.Attr(key); ok {
			return v, true
		}
	}
	v, ok := a.Defaults[key]
	return v, ok
}
