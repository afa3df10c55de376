package ir

// ListDescriptor represents an ordered collection ([]T).
type ListDescriptor struct {
	// Element is the list element type.
	Element TypeDescriptor
}

// Kind returns KindList.
func (d *ListDescriptor) Kind() DescriptorKind { return KindList }

func (*ListDescriptor) sealed() {}

// List returns a ListDescriptor.
func List(element TypeDescriptor) *ListDescriptor {
	return &ListDescriptor{Element: element}
}

// OptionalDescriptor represents a value that may be absent (JSON null).
type OptionalDescriptor struct {
	Inner TypeDescriptor
}

// Kind returns KindOptional.
func (d *OptionalDescriptor) Kind() DescriptorKind { return KindOptional }

func (*OptionalDescriptor) sealed() {}

// Optional returns an OptionalDescriptor.
func Optional(inner TypeDescriptor) *OptionalDescriptor {
	return &OptionalDescriptor{Inner: inner}
}

// MapDescriptor represents a key-value mapping. JSON object keys are always
// strings on the wire; Key records the logical key type.
type MapDescriptor struct {
	Key   TypeDescriptor
	Value TypeDescriptor
}

// Kind returns KindMap.
func (d *MapDescriptor) Kind() DescriptorKind { return KindMap }

func (*MapDescriptor) sealed() {}

// Map returns a MapDescriptor.
func Map(key, value TypeDescriptor) *MapDescriptor {
	return &MapDescriptor{Key: key, Value: value}
}

// FallibleDescriptor marks a return type whose failure travels out of band.
// It is only valid as the outermost descriptor of a method return.
type FallibleDescriptor struct {
	Success TypeDescriptor
}

// Kind returns KindFallible.
func (d *FallibleDescriptor) Kind() DescriptorKind { return KindFallible }

func (*FallibleDescriptor) sealed() {}

// Fallible returns a FallibleDescriptor.
func Fallible(success TypeDescriptor) *FallibleDescriptor {
	return &FallibleDescriptor{Success: success}
}
