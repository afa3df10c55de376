package ir

// StructShape is an object type with named fields (Go struct).
type StructShape struct {
	// Fields contains all serialized fields in declaration order.
	Fields []FieldDescriptor
}

// ShapeKind returns ShapeStruct.
func (*StructShape) ShapeKind() ShapeKind { return ShapeStruct }

func (*StructShape) shape() {}

// FieldDescriptor represents a single field within a struct or union variant.
type FieldDescriptor struct {
	// Name is the Go field name.
	Name string

	// Type is the field's type descriptor.
	Type TypeDescriptor

	// JSONName is the serialized property name (from json tag).
	// Falls back to Name if json tag is absent.
	JSONName string

	// Optional indicates the field can be absent from JSON output.
	// This is true when json:",omitempty" or json:",omitzero" is set.
	Optional bool

	// Skip indicates json:"-" was set.
	Skip bool

	// ValidateTag is the raw value from the `validate` struct tag.
	ValidateTag string

	// Documentation for this field.
	Documentation Documentation
}

// PropertyName returns the serialized name of the field.
func (f FieldDescriptor) PropertyName() string {
	if f.JSONName != "" {
		return f.JSONName
	}
	return f.Name
}
