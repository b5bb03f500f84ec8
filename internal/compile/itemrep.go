package compile

import (
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/router"
)

// DefaultRep is the name of the implicit representation every item has.
const DefaultRep = router.DefaultRep

// Snapshot names a captured content state in an ItemRep's compilation
// sequence.
type Snapshot string

const (
	// SnapshotRaw is the source content as loaded.
	SnapshotRaw Snapshot = "raw"
	// SnapshotPre is captured when the first layout is applied.
	SnapshotPre Snapshot = "pre"
	// SnapshotPost is captured when the step sequence completes.
	SnapshotPost Snapshot = "post"
	// SnapshotLast always tracks the most recently produced content and is
	// the snapshot every further step operates on.
	SnapshotLast Snapshot = "last"
)

// ItemRep is one named, independently compiled view of an Item. Its
// snapshots are written only by the compiler (or a Proxy acting on its
// behalf) during a single sequential pass; nothing mutates a rep outside
// that pass.
type ItemRep struct {
	Item   *content.Item
	Name   string
	Binary bool

	snapshots map[Snapshot][]byte
	assigns   Assigns
	compiled  bool
	routed    bool
	path      string
}

// NewItemRep derives a representation from item, seeding the raw and last
// snapshots with the source content.
func NewItemRep(item *content.Item, name string) *ItemRep {
	if name == "" {
		name = DefaultRep
	}
	return &ItemRep{
		Item:   item,
		Name:   name,
		Binary: item.Binary,
		snapshots: map[Snapshot][]byte{
			SnapshotRaw:  item.RawContent,
			SnapshotLast: item.RawContent,
		},
	}
}

// Last returns the active snapshot's content.
func (r *ItemRep) Last() []byte { return r.snapshots[SnapshotLast] }

// SnapshotContent returns a named snapshot's content and whether it was
// ever captured.
func (r *ItemRep) SnapshotContent(s Snapshot) ([]byte, bool) {
	b, ok := r.snapshots[s]
	return b, ok
}

// CompiledContent returns the final content handed to the writer. It equals
// the last snapshot; callers should check Compiled when it matters whether
// the step sequence ran to completion.
func (r *ItemRep) CompiledContent() []byte { return r.Last() }

// Compiled reports whether the rep's step sequence completed successfully.
func (r *ItemRep) Compiled() bool { return r.compiled }

// Assigns returns the binding environment installed before the current step.
func (r *ItemRep) Assigns() Assigns { return r.assigns }

// Path returns the routed output path and whether routing has happened. An
// empty routed path means the representation is not written.
func (r *ItemRep) Path() (string, bool) { return r.path, r.routed }

func (r *ItemRep) installAssigns(a Assigns) { r.assigns = a }

// setLast replaces the active snapshot. Content slices are never mutated in
// place, so earlier captures stay intact even when they alias a previous
// last.
func (r *ItemRep) setLast(b []byte) { r.snapshots[SnapshotLast] = b }

func (r *ItemRep) capture(s Snapshot) { r.snapshots[s] = r.snapshots[SnapshotLast] }

func (r *ItemRep) captureIfAbsent(s Snapshot) {
	if _, ok := r.snapshots[s]; !ok {
		r.capture(s)
	}
}

func (r *ItemRep) finalize() {
	r.capture(SnapshotPost)
	r.compiled = true
}

func (r *ItemRep) setPath(p string) { r.path, r.routed = p, true }
