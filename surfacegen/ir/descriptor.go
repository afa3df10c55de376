package ir

// DescriptorKind identifies the category of a type descriptor.
type DescriptorKind int

const (
	KindLeaf     DescriptorKind = iota // Named or primitive type with a fixed wire shape
	KindList                           // Ordered collection ([]T)
	KindOptional                       // Value that may be null (*T)
	KindMap                            // Key-value mapping (map[K]V)
	KindFallible                       // Return value with an out-of-band error channel
)

// String returns the string representation of the descriptor kind.
func (k DescriptorKind) String() string {
	switch k {
	case KindLeaf:
		return "Leaf"
	case KindList:
		return "List"
	case KindOptional:
		return "Optional"
	case KindMap:
		return "Map"
	case KindFallible:
		return "Fallible"
	default:
		return "Unknown"
	}
}

// TypeDescriptor is the base interface for all type descriptors.
type TypeDescriptor interface {
	// Kind returns the descriptor kind for type switching.
	Kind() DescriptorKind

	// Ensure only types in this package can implement TypeDescriptor.
	sealed()
}

// IsWrapper reports whether td is a container or the fallible wrapper.
// Wrappers are always inlined and never become named definitions.
func IsWrapper(td TypeDescriptor) bool {
	switch td.(type) {
	case *ListDescriptor, *OptionalDescriptor, *MapDescriptor, *FallibleDescriptor:
		return true
	default:
		return false
	}
}

// IsCustom reports whether td is a leaf with a structured (non-primitive) shape.
func IsCustom(td TypeDescriptor) bool {
	leaf, ok := td.(*LeafDescriptor)
	return ok && leaf.Custom()
}

// Walk calls fn for td and every descriptor nested in it, depth first.
// Struct fields, union variants and alias targets of custom leaves are not
// followed; only the structural containers are.
func Walk(td TypeDescriptor, fn func(TypeDescriptor) bool) {
	if td == nil || !fn(td) {
		return
	}
	switch t := td.(type) {
	case *ListDescriptor:
		Walk(t.Element, fn)
	case *OptionalDescriptor:
		Walk(t.Inner, fn)
	case *MapDescriptor:
		Walk(t.Key, fn)
		Walk(t.Value, fn)
	case *FallibleDescriptor:
		Walk(t.Success, fn)
	}
}
