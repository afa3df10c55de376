package ir

// ShapeKind identifies the wire shape behind a leaf.
type ShapeKind int

const (
	ShapePrimitive ShapeKind = iota // Built-in scalar
	ShapeStruct                     // Object with named fields
	ShapeEnum                       // Closed set of literal values
	ShapeUnion                      // Internally tagged union of object variants
	ShapeAlias                      // Named type over another descriptor
)

// String returns the string representation of the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case ShapePrimitive:
		return "Primitive"
	case ShapeStruct:
		return "Struct"
	case ShapeEnum:
		return "Enum"
	case ShapeUnion:
		return "Union"
	case ShapeAlias:
		return "Alias"
	default:
		return "Unknown"
	}
}

// Shape is the statically known wire representation of a leaf.
type Shape interface {
	ShapeKind() ShapeKind
	shape()
}

// LeafDescriptor is an opaque named type: a primitive, or an application
// defined struct, enum, union or alias.
type LeafDescriptor struct {
	// Name is the type identifier.
	Name GoIdentifier

	// Shape is the wire representation of values of this type.
	Shape Shape

	// Documentation for this type.
	Documentation Documentation

	// Source location in Go code, when known.
	Source Source
}

// Kind returns KindLeaf.
func (d *LeafDescriptor) Kind() DescriptorKind { return KindLeaf }

func (*LeafDescriptor) sealed() {}

// Custom reports whether the leaf has a structured shape that warrants a
// named, reusable definition on the client side.
func (d *LeafDescriptor) Custom() bool {
	if d.Shape == nil {
		return false
	}
	return d.Shape.ShapeKind() != ShapePrimitive
}

// Named returns a custom leaf with the given name and shape.
func Named(name, pkg string, shape Shape) *LeafDescriptor {
	return &LeafDescriptor{
		Name:  GoIdentifier{Name: name, Package: pkg},
		Shape: shape,
	}
}
