package ir

import "encoding/json"

// JSON serialization support for descriptors.
// All descriptors and shapes include a "kind" field for type discrimination.

// MarshalJSON implements json.Marshaler for LeafDescriptor.
func (d *LeafDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string `json:"kind"`
		Name    string `json:"name"`
		Package string `json:"package,omitempty"`
		Shape   Shape  `json:"shape"`
		Doc     string `json:"doc,omitempty"`
	}{
		Kind:    "leaf",
		Name:    d.Name.Name,
		Package: d.Name.Package,
		Shape:   d.Shape,
		Doc:     d.Documentation.Summary,
	})
}

// MarshalJSON implements json.Marshaler for ListDescriptor.
func (d *ListDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string         `json:"kind"`
		Element TypeDescriptor `json:"element"`
	}{
		Kind:    "list",
		Element: d.Element,
	})
}

// MarshalJSON implements json.Marshaler for OptionalDescriptor.
func (d *OptionalDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind  string         `json:"kind"`
		Inner TypeDescriptor `json:"inner"`
	}{
		Kind:  "optional",
		Inner: d.Inner,
	})
}

// MarshalJSON implements json.Marshaler for MapDescriptor.
func (d *MapDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind  string         `json:"kind"`
		Key   TypeDescriptor `json:"key"`
		Value TypeDescriptor `json:"value"`
	}{
		Kind:  "map",
		Key:   d.Key,
		Value: d.Value,
	})
}

// MarshalJSON implements json.Marshaler for FallibleDescriptor.
func (d *FallibleDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string         `json:"kind"`
		Success TypeDescriptor `json:"success"`
	}{
		Kind:    "fallible",
		Success: d.Success,
	})
}

// MarshalJSON implements json.Marshaler for PrimitiveShape.
func (s *PrimitiveShape) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind          string `json:"kind"`
		PrimitiveKind string `json:"primitiveKind"`
		BitSize       int    `json:"bitSize,omitempty"`
	}{
		Kind:          "primitive",
		PrimitiveKind: s.PrimitiveKind.String(),
		BitSize:       s.BitSize,
	})
}

type fieldJSON struct {
	Name     string         `json:"name"`
	Type     TypeDescriptor `json:"type"`
	Optional bool           `json:"optional,omitempty"`
	Validate string         `json:"validate,omitempty"`
}

func fieldsJSON(fields []FieldDescriptor) []fieldJSON {
	out := make([]fieldJSON, 0, len(fields))
	for _, f := range fields {
		if f.Skip {
			continue
		}
		out = append(out, fieldJSON{
			Name:     f.PropertyName(),
			Type:     f.Type,
			Optional: f.Optional,
			Validate: f.ValidateTag,
		})
	}
	return out
}

// MarshalJSON implements json.Marshaler for StructShape.
func (s *StructShape) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind   string      `json:"kind"`
		Fields []fieldJSON `json:"fields"`
	}{
		Kind:   "struct",
		Fields: fieldsJSON(s.Fields),
	})
}

// MarshalJSON implements json.Marshaler for EnumShape.
func (s *EnumShape) MarshalJSON() ([]byte, error) {
	type member struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	members := make([]member, len(s.Members))
	for i, m := range s.Members {
		members[i] = member{Name: m.Name, Value: m.Value}
	}
	return json.Marshal(&struct {
		Kind    string   `json:"kind"`
		Members []member `json:"members"`
	}{
		Kind:    "enum",
		Members: members,
	})
}

// MarshalJSON implements json.Marshaler for UnionShape.
func (s *UnionShape) MarshalJSON() ([]byte, error) {
	type variant struct {
		Name   string      `json:"name"`
		Fields []fieldJSON `json:"fields"`
	}
	variants := make([]variant, len(s.Variants))
	for i, v := range s.Variants {
		variants[i] = variant{Name: v.Name, Fields: fieldsJSON(v.Fields)}
	}
	return json.Marshal(&struct {
		Kind     string    `json:"kind"`
		Tag      string    `json:"tag"`
		Variants []variant `json:"variants"`
	}{
		Kind:     "union",
		Tag:      s.Tag,
		Variants: variants,
	})
}

// MarshalJSON implements json.Marshaler for AliasShape.
func (s *AliasShape) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind       string         `json:"kind"`
		Underlying TypeDescriptor `json:"underlying"`
	}{
		Kind:       "alias",
		Underlying: s.Underlying,
	})
}

// MarshalJSON implements json.Marshaler for MethodContract.
// The invocation binding is runtime state and is not serialized.
func (c MethodContract) MarshalJSON() ([]byte, error) {
	type param struct {
		Name string         `json:"name"`
		Type TypeDescriptor `json:"type"`
	}
	params := make([]param, len(c.Params))
	for i, p := range c.Params {
		params[i] = param{Name: p.Name, Type: p.Type}
	}
	return json.Marshal(&struct {
		Name     string         `json:"name"`
		Async    bool           `json:"async"`
		Params   []param        `json:"params"`
		Return   TypeDescriptor `json:"return"`
		Fallible bool           `json:"fallible"`
		Doc      string         `json:"doc,omitempty"`
	}{
		Name:     c.Name,
		Async:    c.Async,
		Params:   params,
		Return:   c.Return,
		Fallible: c.Fallible,
		Doc:      c.Documentation.Summary,
	})
}
