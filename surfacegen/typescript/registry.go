package typescript

import "github.com/broady/surface/surfacegen/ir"

// Registry is the append-only set of named type definitions collected during
// one generation run. Entries are keyed by canonical signature and kept in
// insertion order, which is the only order used for emission.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	entries []registryEntry
	index   map[string]int
}

type registryEntry struct {
	signature string
	typ       ir.TypeDescriptor
	text      string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a definition under signature. Registering a signature
// that is already present is a no-op; the first definition wins.
// It reports whether the entry was added.
func (r *Registry) Register(signature string, td ir.TypeDescriptor, text string) bool {
	if _, ok := r.index[signature]; ok {
		return false
	}
	r.index[signature] = len(r.entries)
	r.entries = append(r.entries, registryEntry{signature: signature, typ: td, text: text})
	return true
}

// Has reports whether signature has been registered.
func (r *Registry) Has(signature string) bool {
	_, ok := r.index[signature]
	return ok
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Signatures returns the registered signatures in insertion order.
func (r *Registry) Signatures() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.signature
	}
	return out
}

// Definitions returns the definition texts in insertion order. Only entries
// whose descriptor is a custom leaf are returned; wrappers are always inlined
// and never produce a definition.
func (r *Registry) Definitions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if ir.IsCustom(e.typ) && !ir.IsWrapper(e.typ) {
			out = append(out, e.text)
		}
	}
	return out
}
