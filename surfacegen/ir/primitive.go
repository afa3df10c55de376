package ir

import "strconv"

// PrimitiveKind identifies the category of a primitive type.
type PrimitiveKind int

const (
	PrimitiveBool  PrimitiveKind = iota
	PrimitiveInt                 // Signed integer (see BitSize)
	PrimitiveUint                // Unsigned integer (see BitSize)
	PrimitiveFloat               // Floating point (see BitSize)
	PrimitiveString
	PrimitiveBytes    // []byte (base64-encoded in JSON)
	PrimitiveTime     // time.Time (RFC 3339 string in JSON)
	PrimitiveDuration // time.Duration (nanoseconds as int64 in JSON)
	PrimitiveAny      // interface{} / any
	PrimitiveEmpty    // struct{} (empty struct, serializes as {})
	PrimitiveVoid     // no value; encodes as null
)

// String returns the string representation of the primitive kind.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveBool:
		return "Bool"
	case PrimitiveInt:
		return "Int"
	case PrimitiveUint:
		return "Uint"
	case PrimitiveFloat:
		return "Float"
	case PrimitiveString:
		return "String"
	case PrimitiveBytes:
		return "Bytes"
	case PrimitiveTime:
		return "Time"
	case PrimitiveDuration:
		return "Duration"
	case PrimitiveAny:
		return "Any"
	case PrimitiveEmpty:
		return "Empty"
	case PrimitiveVoid:
		return "Void"
	default:
		return "Unknown"
	}
}

// PrimitiveShape is the shape of a built-in leaf.
type PrimitiveShape struct {
	PrimitiveKind PrimitiveKind

	// BitSize specifies the size for numeric kinds: 0 for platform-dependent
	// int/uint, otherwise 8, 16, 32 or 64. Ignored for non-numeric kinds.
	BitSize int
}

// ShapeKind returns ShapePrimitive.
func (*PrimitiveShape) ShapeKind() ShapeKind { return ShapePrimitive }

func (*PrimitiveShape) shape() {}

// primitiveName is the canonical leaf name of a primitive.
func primitiveName(kind PrimitiveKind, bits int) string {
	switch kind {
	case PrimitiveBool:
		return "bool"
	case PrimitiveInt:
		if bits == 0 {
			return "int"
		}
		return "int" + strconv.Itoa(bits)
	case PrimitiveUint:
		if bits == 0 {
			return "uint"
		}
		return "uint" + strconv.Itoa(bits)
	case PrimitiveFloat:
		return "float" + strconv.Itoa(bits)
	case PrimitiveString:
		return "string"
	case PrimitiveBytes:
		return "bytes"
	case PrimitiveTime:
		return "time"
	case PrimitiveDuration:
		return "duration"
	case PrimitiveAny:
		return "any"
	case PrimitiveEmpty:
		return "empty"
	case PrimitiveVoid:
		return "void"
	default:
		return "unknown"
	}
}

// Primitive returns a leaf descriptor for a built-in kind.
func Primitive(kind PrimitiveKind, bitSize int) *LeafDescriptor {
	return &LeafDescriptor{
		Name:  GoIdentifier{Name: primitiveName(kind, bitSize)},
		Shape: &PrimitiveShape{PrimitiveKind: kind, BitSize: bitSize},
	}
}

// Convenience constructors for common primitives.

// Bool returns a leaf for bool.
func Bool() *LeafDescriptor { return Primitive(PrimitiveBool, 0) }

// String returns a leaf for string.
func String() *LeafDescriptor { return Primitive(PrimitiveString, 0) }

// Int returns a leaf for int with the given bit size.
// Use 0 for platform-dependent int.
func Int(bitSize int) *LeafDescriptor { return Primitive(PrimitiveInt, bitSize) }

// Uint returns a leaf for uint with the given bit size.
// Use 0 for platform-dependent uint.
func Uint(bitSize int) *LeafDescriptor { return Primitive(PrimitiveUint, bitSize) }

// Float returns a leaf for float with the given bit size.
func Float(bitSize int) *LeafDescriptor { return Primitive(PrimitiveFloat, bitSize) }

// Bytes returns a leaf for []byte.
func Bytes() *LeafDescriptor { return Primitive(PrimitiveBytes, 0) }

// Time returns a leaf for time.Time.
func Time() *LeafDescriptor { return Primitive(PrimitiveTime, 0) }

// Duration returns a leaf for time.Duration.
func Duration() *LeafDescriptor { return Primitive(PrimitiveDuration, 0) }

// Any returns a leaf for any/interface{}.
func Any() *LeafDescriptor { return Primitive(PrimitiveAny, 0) }

// Empty returns a leaf for struct{}.
func Empty() *LeafDescriptor { return Primitive(PrimitiveEmpty, 0) }

// Void returns the leaf for a method that produces no value.
func Void() *LeafDescriptor { return Primitive(PrimitiveVoid, 0) }

// IsVoid reports whether td is the void leaf.
func IsVoid(td TypeDescriptor) bool {
	leaf, ok := td.(*LeafDescriptor)
	if !ok {
		return false
	}
	p, ok := leaf.Shape.(*PrimitiveShape)
	return ok && p.PrimitiveKind == PrimitiveVoid
}
