// Package filters provides the built-in content filters. Each filter
// registers itself in the default plugin registry from init, so importing
// this package (usually blank, from the command wiring) is what makes the
// built-in names resolvable in rules.
package filters
