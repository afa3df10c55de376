package ir

// EnumShape is a closed set of literal values.
// The reflection provider builds it from types implementing EnumValues;
// the source provider scans package constants.
type EnumShape struct {
	// Members contains all enum variants.
	Members []EnumMember
}

// ShapeKind returns ShapeEnum.
func (*EnumShape) ShapeKind() ShapeKind { return ShapeEnum }

func (*EnumShape) shape() {}

// EnumMember represents a single enum variant.
type EnumMember struct {
	// Name is the constant name.
	Name string

	// Value is one of string, int64 or float64.
	Value any

	// Documentation for this member.
	Documentation Documentation
}

// UnionShape is an internally tagged union: every variant is an object that
// carries a discriminator property named Tag whose value is the variant name.
type UnionShape struct {
	// Tag is the discriminator property, e.g. "type".
	Tag string

	// Variants in declaration order.
	Variants []UnionVariant
}

// ShapeKind returns ShapeUnion.
func (*UnionShape) ShapeKind() ShapeKind { return ShapeUnion }

func (*UnionShape) shape() {}

// UnionVariant is one arm of a tagged union.
type UnionVariant struct {
	// Name is the discriminator value.
	Name string

	// Fields are the remaining properties of the variant object.
	Fields []FieldDescriptor
}

// AliasShape is a named type over another descriptor (type Color string).
type AliasShape struct {
	Underlying TypeDescriptor
}

// ShapeKind returns ShapeAlias.
func (*AliasShape) ShapeKind() ShapeKind { return ShapeAlias }

func (*AliasShape) shape() {}
