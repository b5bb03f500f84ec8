package compile

import (
	"context"

	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/plugin"
)

// Filter transforms content. Implementations must return fresh content
// rather than mutating src; args pass through verbatim from the rule
// invocation.
type Filter interface {
	Name() string
	Apply(ctx context.Context, src []byte, a Assigns, args map[string]any) ([]byte, error)
	SupportsBinary() bool
}

// ResolveFilter looks a filter up by symbolic name. A missing name is an
// unknown-filter condition; callers abort the current representation.
func ResolveFilter(reg *plugin.Registry, name string) (Filter, error) {
	impl, ok := reg.Find(plugin.KindFilter, name)
	if !ok {
		return nil, nanocerr.NewUnknownFilter(name)
	}
	f, ok := impl.(Filter)
	if !ok {
		return nil, nanocerr.InternalError("registered filter does not implement the filter contract", nil).
			WithContext("filter", name)
	}
	return f, nil
}
