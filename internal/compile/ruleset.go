package compile

import "github.com/xavier/nanoc/internal/content"

// StepKind discriminates the instructions a rule can issue.
type StepKind int

const (
	StepFilter StepKind = iota
	StepLayout
	StepSnapshot
)

// Step is one instruction in a representation's compile sequence: apply a
// named filter, render through a layout, or capture a snapshot.
type Step struct {
	Kind StepKind
	// Name is the filter name, layout identifier, or snapshot name,
	// depending on Kind.
	Name string
	Args map[string]any
}

// FilterStep builds a filter instruction.
func FilterStep(name string, args map[string]any) Step {
	return Step{Kind: StepFilter, Name: name, Args: args}
}

// LayoutStep builds a layout instruction.
func LayoutStep(identifier string) Step {
	return Step{Kind: StepLayout, Name: identifier}
}

// SnapshotStep builds a snapshot-capture instruction.
func SnapshotStep(name string) Step {
	return Step{Kind: StepSnapshot, Name: name}
}

// RouteOverride adjusts where one representation is written, ahead of the
// site router: an explicit path, a file-style extension, or skipping the
// write entirely.
type RouteOverride struct {
	Path      string
	Extension string
	Skip      bool
}

// Zero reports an override with no effect.
func (o RouteOverride) Zero() bool {
	return !o.Skip && o.Path == "" && o.Extension == ""
}

// RuleSet supplies the externally-defined compilation instructions the
// compiler executes. Implementations match items by identifier patterns.
type RuleSet interface {
	// RepNamesFor lists the representations to build for an item, in order.
	RepNamesFor(item *content.Item) []string
	// CompileStepsFor returns the ordered steps for one representation.
	// ok is false when no compile rule matches.
	CompileStepsFor(item *content.Item, rep string) ([]Step, bool)
	// LayoutFilterFor resolves the filter (and args) bound to a layout.
	LayoutFilterFor(layout *content.Layout) (string, map[string]any, bool)
	// RoutingRuleFor returns a routing override for one representation.
	RoutingRuleFor(item *content.Item, rep string) (RouteOverride, bool)
}
