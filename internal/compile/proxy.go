package compile

import (
	"context"

	"github.com/xavier/nanoc/internal/content"
)

// Proxy is the controlled surface a representation exposes to filters,
// templates, and loaded code. It forwards reads to the underlying rep and
// runs mutations through the owning compiler, so rule code can never skip
// assigns recomputation or snapshot bookkeeping.
type Proxy struct {
	rep      *ItemRep
	compiler *Compiler
}

// NewProxy wraps rep for use inside a compilation pass driven by c.
func NewProxy(rep *ItemRep, c *Compiler) *Proxy {
	return &Proxy{rep: rep, compiler: c}
}

// Name returns the representation name.
func (p *Proxy) Name() string { return p.rep.Name }

// IsBinary reports whether the representation carries binary content.
func (p *Proxy) IsBinary() bool { return p.rep.Binary }

// Item returns the item this representation belongs to.
func (p *Proxy) Item() *content.Item { return p.rep.Item }

// CompiledContent returns the representation's current content.
func (p *Proxy) CompiledContent() []byte { return p.rep.CompiledContent() }

// SnapshotContent returns the content captured under a snapshot name, if
// that snapshot exists.
func (p *Proxy) SnapshotContent(s Snapshot) ([]byte, bool) {
	return p.rep.SnapshotContent(s)
}

// Path routes the representation on first use and returns its output path.
// An empty path means the representation is not written anywhere.
func (p *Proxy) Path() (string, error) {
	return p.compiler.pathFor(p.rep)
}

// Filter applies a named filter to the active snapshot.
func (p *Proxy) Filter(ctx context.Context, name string, args map[string]any) error {
	return p.compiler.applyFilter(ctx, p.rep, name, args)
}

// Layout renders the representation through a layout.
func (p *Proxy) Layout(ctx context.Context, identifier string) error {
	return p.compiler.applyLayout(ctx, p.rep, identifier)
}

// Snapshot captures the active content under a name for later reference.
func (p *Proxy) Snapshot(s Snapshot) {
	p.rep.capture(s)
}
