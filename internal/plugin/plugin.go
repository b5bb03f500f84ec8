// Package plugin provides the registry that binds capability kinds and
// symbolic names to concrete implementations. Filters, routers, and data
// sources are all resolved through it.
package plugin

import (
	"sort"
	"strings"
	"sync"
)

// Kind identifies the category of a registered capability.
type Kind string

const (
	KindFilter     Kind = "filter"
	KindRouter     Kind = "router"
	KindDataSource Kind = "datasource"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindFilter, KindRouter, KindDataSource:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string { return string(k) }

// Registry maps (kind, symbolic name) pairs to implementations. Names are
// case-insensitive; several names may alias one implementation. Registering
// the same (kind, name) pair again replaces the previous entry — last wins —
// so lookups are deterministic regardless of registration order.
//
// Registration happens at process startup (package init and code snippet
// loading); during a compilation pass the registry is only read. The mutex
// guards the startup phase, not concurrent compilation.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]any
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Kind]map[string]any),
	}
}

// Register binds an implementation under the given kind and name. A missing
// name or nil implementation is ignored rather than an error: registration
// runs from init functions where there is no caller to report to.
func (r *Registry) Register(kind Kind, name string, impl any) {
	if name == "" || impl == nil || !kind.IsValid() {
		return
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[kind] == nil {
		r.entries[kind] = make(map[string]any)
	}
	r.entries[kind][key] = impl
}

// Find returns the implementation registered under (kind, name). Absence is
// reported through the boolean, not an error; callers decide whether a
// missing plugin is fatal.
func (r *Registry) Find(kind Kind, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.entries[kind][strings.ToLower(name)]
	return impl, ok
}

// Names returns the sorted names registered under kind.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries[kind]))
	for name := range r.entries[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of registered entries across kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, byName := range r.entries {
		n += len(byName)
	}
	return n
}

// defaultRegistry is the process-wide registry that built-in implementations
// register into from their init functions.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register binds an implementation in the process-wide registry.
func Register(kind Kind, name string, impl any) {
	defaultRegistry.Register(kind, name, impl)
}

// Find looks up an implementation in the process-wide registry.
func Find(kind Kind, name string) (any, bool) {
	return defaultRegistry.Find(kind, name)
}
