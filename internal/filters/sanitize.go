package filters

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/plugin"
)

// Sanitize strips unsafe HTML. The default policy allows the formatting
// tags user-generated content typically needs; policy: strict reduces the
// output to plain text.
type Sanitize struct{}

func (Sanitize) Name() string         { return "sanitize" }
func (Sanitize) SupportsBinary() bool { return false }

func (Sanitize) Apply(_ context.Context, src []byte, _ compile.Assigns, args map[string]any) ([]byte, error) {
	policy := bluemonday.UGCPolicy()
	if name, ok := args["policy"].(string); ok {
		switch name {
		case "", "ugc":
		case "strict":
			policy = bluemonday.StrictPolicy()
		default:
			return nil, fmt.Errorf("unknown sanitize policy %q", name)
		}
	}
	return policy.SanitizeBytes(src), nil
}

func init() {
	plugin.Register(plugin.KindFilter, "sanitize", Sanitize{})
}
