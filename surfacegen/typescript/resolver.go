package typescript

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/broady/surface/surfacegen/ir"
)

// ErrNameCollision is returned when two distinct types would be emitted
// under the same TypeScript name.
var ErrNameCollision = errors.New("type name collision")

// Resolver maps descriptors to TypeScript type text.
//
// Plain resolution inlines every type. Custom-aware resolution replaces each
// custom leaf by its name and records the leaf's definition in the registry
// the first time the leaf is seen.
type Resolver struct {
	registry *Registry

	// names maps an emitted type name to the signature that owns it.
	names map[string]string

	// inProgress holds signatures whose definitions are being rendered, so
	// recursive types resolve to their name instead of looping.
	inProgress map[string]bool

	// comments enables JSDoc on definitions and fields.
	comments bool
}

// NewResolver returns a resolver that registers definitions in reg.
func NewResolver(reg *Registry) *Resolver {
	return &Resolver{
		registry:   reg,
		names:      make(map[string]string),
		inProgress: make(map[string]bool),
	}
}

// Registry returns the registry definitions are written to.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Plain resolves td to fully inlined type text.
func (r *Resolver) Plain(td ir.TypeDescriptor) (string, error) {
	return r.resolve(td, false, make(map[string]bool))
}

// Custom resolves td, referencing custom leaves by name and registering
// their definitions. Children are registered before their parents.
func (r *Resolver) Custom(td ir.TypeDescriptor) (string, error) {
	return r.resolve(td, true, nil)
}

func (r *Resolver) resolve(td ir.TypeDescriptor, custom bool, stack map[string]bool) (string, error) {
	switch t := td.(type) {
	case *ir.LeafDescriptor:
		return r.resolveLeaf(t, custom, stack)

	case *ir.ListDescriptor:
		elem, err := r.resolve(t.Element, custom, stack)
		if err != nil {
			return "", err
		}
		if strings.Contains(elem, "|") {
			return "(" + elem + ")[]", nil
		}
		return elem + "[]", nil

	case *ir.OptionalDescriptor:
		inner, err := r.resolve(t.Inner, custom, stack)
		if err != nil {
			return "", err
		}
		return inner + " | null", nil

	case *ir.MapDescriptor:
		value, err := r.resolve(t.Value, custom, stack)
		if err != nil {
			return "", err
		}
		// JSON object keys are strings; a named key type is kept for readability.
		if ir.IsCustom(t.Key) {
			key, err := r.resolve(t.Key, custom, stack)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Record<%s, %s>", key, value), nil
		}
		return fmt.Sprintf("Record<string, %s>", value), nil

	case *ir.FallibleDescriptor:
		return r.resolve(t.Success, custom, stack)

	case nil:
		return "", errors.New("cannot resolve a missing type")

	default:
		return "", errors.Newf("unsupported descriptor kind: %s", td.Kind())
	}
}

func (r *Resolver) resolveLeaf(leaf *ir.LeafDescriptor, custom bool, stack map[string]bool) (string, error) {
	if prim, ok := leaf.Shape.(*ir.PrimitiveShape); ok {
		return primitiveType(prim), nil
	}
	if leaf.Shape == nil {
		return "", errors.Newf("type %q has no shape", leaf.Name.Name)
	}

	name := typeName(leaf)
	sig := ir.Signature(leaf)

	if !custom {
		if stack[sig] {
			return name, nil
		}
		stack[sig] = true
		defer delete(stack, sig)
		return r.renderShape(leaf, false, stack)
	}

	if owner, ok := r.names[name]; ok && owner != sig {
		return "", errors.Wrapf(ErrNameCollision, "%q is used by both %s and %s", name, owner, sig)
	}
	if r.registry.Has(sig) || r.inProgress[sig] {
		return name, nil
	}
	r.names[name] = sig

	r.inProgress[sig] = true
	body, err := r.renderShape(leaf, true, nil)
	delete(r.inProgress, sig)
	if err != nil {
		return "", errors.Wrapf(err, "type %s", name)
	}

	var def strings.Builder
	if r.comments {
		writeJSDoc(&def, "", leaf.Documentation)
	}
	fmt.Fprintf(&def, "export type %s = %s;\n", name, body)
	r.registry.Register(sig, leaf, def.String())

	return name, nil
}

// renderShape returns the inline text of a custom leaf's shape.
func (r *Resolver) renderShape(leaf *ir.LeafDescriptor, custom bool, stack map[string]bool) (string, error) {
	switch s := leaf.Shape.(type) {
	case *ir.StructShape:
		return r.renderObject("", "", s.Fields, custom, stack)

	case *ir.UnionShape:
		parts := make([]string, 0, len(s.Variants))
		for _, v := range s.Variants {
			obj, err := r.renderObject(s.Tag, v.Name, v.Fields, custom, stack)
			if err != nil {
				return "", err
			}
			parts = append(parts, obj)
		}
		return strings.Join(parts, " | "), nil

	case *ir.EnumShape:
		parts := make([]string, len(s.Members))
		for i, m := range s.Members {
			parts[i] = formatEnumValue(m.Value)
		}
		return strings.Join(parts, " | "), nil

	case *ir.AliasShape:
		return r.resolve(s.Underlying, custom, stack)

	default:
		return "", errors.Newf("unsupported shape: %s", leaf.Shape.ShapeKind())
	}
}

// renderObject renders an object type. When tag is set, a discriminator
// property with the literal variant name comes first.
func (r *Resolver) renderObject(tag, variant string, fields []ir.FieldDescriptor, custom bool, stack map[string]bool) (string, error) {
	var buf strings.Builder
	buf.WriteString("{\n")

	if tag != "" {
		fmt.Fprintf(&buf, "  %s: %s;\n", propertyName(tag), formatEnumValue(variant))
	}

	for _, field := range fields {
		if field.Skip {
			continue
		}
		if r.comments {
			writeJSDoc(&buf, "  ", field.Documentation)
		}

		typ, err := r.resolve(field.Type, custom, stack)
		if err != nil {
			return "", errors.Wrapf(err, "field %s", field.Name)
		}

		buf.WriteString("  ")
		buf.WriteString(propertyName(field.PropertyName()))
		if field.Optional {
			buf.WriteString("?")
		}
		buf.WriteString(": ")
		buf.WriteString(strings.ReplaceAll(typ, "\n", "\n  "))
		buf.WriteString(";\n")
	}

	buf.WriteString("}")
	return buf.String(), nil
}

// typeName is the TypeScript name of a custom leaf.
func typeName(leaf *ir.LeafDescriptor) string {
	return sanitizeIdentifier(leaf.Name.Name)
}

// primitiveType maps a primitive shape to its TypeScript type.
func primitiveType(p *ir.PrimitiveShape) string {
	switch p.PrimitiveKind {
	case ir.PrimitiveBool:
		return "boolean"
	case ir.PrimitiveInt, ir.PrimitiveUint, ir.PrimitiveFloat:
		return "number"
	case ir.PrimitiveString:
		return "string"
	case ir.PrimitiveBytes:
		return "string" // base64
	case ir.PrimitiveTime:
		return "string" // RFC 3339
	case ir.PrimitiveDuration:
		return "number" // nanoseconds
	case ir.PrimitiveEmpty:
		return "Record<string, never>"
	case ir.PrimitiveVoid:
		return "void"
	default:
		return "unknown"
	}
}

// writeJSDoc writes a JSDoc block for doc, indenting every line by indent.
func writeJSDoc(buf *strings.Builder, indent string, doc ir.Documentation) {
	if doc.IsZero() {
		return
	}

	text := doc.Body
	if text == "" {
		text = doc.Summary
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")

	if len(lines) == 1 && doc.Deprecated == nil {
		fmt.Fprintf(buf, "%s/** %s */\n", indent, strings.TrimSpace(lines[0]))
		return
	}

	fmt.Fprintf(buf, "%s/**\n", indent)
	for _, line := range lines {
		if line = strings.TrimSpace(line); line == "" {
			fmt.Fprintf(buf, "%s *\n", indent)
			continue
		}
		fmt.Fprintf(buf, "%s * %s\n", indent, line)
	}
	if doc.Deprecated != nil {
		fmt.Fprintf(buf, "%s * @deprecated", indent)
		if *doc.Deprecated != "" {
			buf.WriteString(" ")
			buf.WriteString(*doc.Deprecated)
		}
		buf.WriteString("\n")
	}
	fmt.Fprintf(buf, "%s */\n", indent)
}

// formatEnumValue formats a literal value for output.
func formatEnumValue(value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
