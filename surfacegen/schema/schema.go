// Package schema derives JSON Schema (draft 2020-12) documents for method
// parameter objects and validates request payloads against them.
package schema

import (
	"github.com/broady/surface/surfacegen/ir"
)

// Draft is the $schema URI of every generated document.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// builder collects $defs for custom leaves while converting descriptors.
type builder struct {
	defs map[string]any
	// done marks leaves whose definition is complete or being built.
	done map[string]bool
}

func newBuilder() *builder {
	return &builder{defs: make(map[string]any), done: make(map[string]bool)}
}

// ForContract returns the keyed parameter-object schema of c. Properties
// are not required: a missing key decodes to the zero value.
func ForContract(c ir.MethodContract) map[string]any {
	b := newBuilder()
	props := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		props[p.Name] = b.convert(p.Type)
	}

	doc := map[string]any{
		"$schema":    Draft,
		"title":      c.Name,
		"type":       "object",
		"properties": props,
	}
	if c.Documentation.Summary != "" {
		doc["description"] = c.Documentation.Summary
	}
	b.attach(doc)
	return doc
}

// ForContractPositional returns the array form of the parameter schema:
// one prefix item per parameter in declared order and no extra items.
func ForContractPositional(c ir.MethodContract) map[string]any {
	b := newBuilder()
	items := make([]any, len(c.Params))
	for i, p := range c.Params {
		items[i] = b.convert(p.Type)
	}

	doc := map[string]any{
		"$schema":     Draft,
		"title":       c.Name,
		"type":        "array",
		"prefixItems": items,
		"items":       false,
	}
	b.attach(doc)
	return doc
}

// ForType returns a standalone schema for td.
func ForType(td ir.TypeDescriptor) map[string]any {
	b := newBuilder()
	doc := b.convert(td)
	doc["$schema"] = Draft
	b.attach(doc)
	return doc
}

func (b *builder) attach(doc map[string]any) {
	if len(b.defs) > 0 {
		doc["$defs"] = b.defs
	}
}

func (b *builder) convert(td ir.TypeDescriptor) map[string]any {
	switch t := td.(type) {
	case *ir.LeafDescriptor:
		if p, ok := t.Shape.(*ir.PrimitiveShape); ok {
			return primitive(p)
		}
		return b.ref(t)
	case *ir.ListDescriptor:
		// A nil Go slice encodes as null and null decodes into one.
		return map[string]any{"type": []any{"array", "null"}, "items": b.convert(t.Element)}
	case *ir.OptionalDescriptor:
		return map[string]any{"anyOf": []any{b.convert(t.Inner), map[string]any{"type": "null"}}}
	case *ir.MapDescriptor:
		return map[string]any{"type": []any{"object", "null"}, "additionalProperties": b.convert(t.Value)}
	case *ir.FallibleDescriptor:
		return b.convert(t.Success)
	default:
		return map[string]any{}
	}
}

// ref returns a $ref to the definition of a custom leaf, building it first.
func (b *builder) ref(leaf *ir.LeafDescriptor) map[string]any {
	name := defName(leaf)
	if !b.done[name] {
		b.done[name] = true
		b.defs[name] = b.shape(leaf)
	}
	return map[string]any{"$ref": "#/$defs/" + name}
}

func (b *builder) shape(leaf *ir.LeafDescriptor) map[string]any {
	var out map[string]any
	switch s := leaf.Shape.(type) {
	case *ir.StructShape:
		out = b.object(s.Fields)
	case *ir.UnionShape:
		variants := make([]any, len(s.Variants))
		for i, v := range s.Variants {
			obj := b.object(v.Fields)
			obj["properties"].(map[string]any)[s.Tag] = map[string]any{"const": v.Name}
			obj["required"] = []any{s.Tag}
			variants[i] = obj
		}
		out = map[string]any{"oneOf": variants}
	case *ir.EnumShape:
		values := make([]any, len(s.Members))
		for i, m := range s.Members {
			values[i] = m.Value
		}
		out = map[string]any{"enum": values}
	case *ir.AliasShape:
		out = b.convert(s.Underlying)
	default:
		out = map[string]any{}
	}
	if leaf.Documentation.Summary != "" {
		out["description"] = leaf.Documentation.Summary
	}
	return out
}

func (b *builder) object(fields []ir.FieldDescriptor) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Skip {
			continue
		}
		props[f.PropertyName()] = b.convert(f.Type)
	}
	return map[string]any{"type": "object", "properties": props}
}

func primitive(p *ir.PrimitiveShape) map[string]any {
	switch p.PrimitiveKind {
	case ir.PrimitiveBool:
		return map[string]any{"type": "boolean"}
	case ir.PrimitiveInt, ir.PrimitiveDuration:
		return map[string]any{"type": "integer"}
	case ir.PrimitiveUint:
		return map[string]any{"type": "integer", "minimum": 0}
	case ir.PrimitiveFloat:
		return map[string]any{"type": "number"}
	case ir.PrimitiveString:
		return map[string]any{"type": "string"}
	case ir.PrimitiveBytes:
		return map[string]any{"type": "string", "contentEncoding": "base64"}
	case ir.PrimitiveTime:
		return map[string]any{"type": "string", "format": "date-time"}
	case ir.PrimitiveEmpty:
		return map[string]any{"type": "object"}
	case ir.PrimitiveVoid:
		return map[string]any{"type": "null"}
	default:
		return map[string]any{}
	}
}

// defName is the $defs key of a custom leaf.
func defName(leaf *ir.LeafDescriptor) string {
	return leaf.Name.Name
}
