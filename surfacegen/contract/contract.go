// Package contract normalizes raw method declarations into method contracts.
//
// Extraction is a pure transformation: it checks that every method is
// asynchronous, drops the implicit receiver and context parameters, validates
// the shape of every descriptor and unwraps Fallible returns. Any error aborts
// the run and no partial contract list is returned.
package contract

import (
	"github.com/cockroachdb/errors"

	"github.com/broady/surface/surfacegen/ir"
)

// Build-time errors. Callers match them with errors.Is.
var (
	// ErrNonAsyncMethod is returned for a method that does not take a
	// context.Context as its first non-receiver parameter.
	ErrNonAsyncMethod = errors.New("method is not asynchronous")

	// ErrUnparsableType is returned for a descriptor that cannot be mapped to
	// a wire shape.
	ErrUnparsableType = errors.New("unparsable type shape")

	// ErrContainerArity is returned for a container with the wrong number of
	// type arguments.
	ErrContainerArity = errors.New("ambiguous container argument count")

	// ErrDuplicateMethod is returned when two methods share a wire name.
	ErrDuplicateMethod = errors.New("duplicate method name")

	// ErrInvalidParam is returned for an empty or repeated parameter name.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrInvalidMethod is returned for a method without a name.
	ErrInvalidMethod = errors.New("invalid method")
)

// Extract turns raw methods into contracts, preserving declaration order.
func Extract(raw []ir.RawMethod) ([]ir.MethodContract, error) {
	contracts := make([]ir.MethodContract, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, m := range raw {
		c, err := extractOne(m)
		if err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, errors.Wrapf(ErrDuplicateMethod, "method %q", c.Name)
		}
		seen[c.Name] = true
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func extractOne(m ir.RawMethod) (ir.MethodContract, error) {
	if m.Name == "" {
		return ir.MethodContract{}, errors.Wrap(ErrInvalidMethod, "method name is empty")
	}
	if !m.Async {
		return ir.MethodContract{}, errors.Wrapf(ErrNonAsyncMethod, "method %q", m.Name)
	}

	c := ir.MethodContract{
		Name:          m.Name,
		Async:         true,
		Documentation: m.Documentation,
		Source:        m.Source,
		Binding:       m.Binding,
	}

	names := make(map[string]bool, len(m.Params))
	for i, p := range m.Params {
		if p.Role != ir.RoleArgument {
			continue
		}
		if p.Name == "" {
			return ir.MethodContract{}, errors.Wrapf(ErrInvalidParam, "method %q: parameter %d has no name", m.Name, i)
		}
		if names[p.Name] {
			return ir.MethodContract{}, errors.Wrapf(ErrInvalidParam, "method %q: parameter %q declared twice", m.Name, p.Name)
		}
		names[p.Name] = true

		if err := validate(p.Type, make(map[*ir.LeafDescriptor]bool)); err != nil {
			return ir.MethodContract{}, errors.Wrapf(err, "method %q: parameter %q", m.Name, p.Name)
		}
		c.Params = append(c.Params, ir.Param{Name: p.Name, Type: p.Type})
	}

	ret := m.Return
	if ret == nil {
		ret = ir.Void()
	}
	if f, ok := ret.(*ir.FallibleDescriptor); ok {
		c.Fallible = true
		ret = f.Success
	}
	if err := validate(ret, make(map[*ir.LeafDescriptor]bool)); err != nil {
		return ir.MethodContract{}, errors.Wrapf(err, "method %q: return type", m.Name)
	}
	c.Return = ret

	return c, nil
}

// validate checks that td is well formed. Fallible is rejected everywhere,
// since the only legal position (outermost return) is unwrapped by the caller.
// Struct fields and union variants of custom leaves are checked too; visited
// guards against recursive types.
func validate(td ir.TypeDescriptor, visited map[*ir.LeafDescriptor]bool) error {
	switch t := td.(type) {
	case nil:
		return errors.Wrap(ErrUnparsableType, "missing type")
	case *ir.LeafDescriptor:
		if t == nil || t.Name.Name == "" {
			return errors.Wrap(ErrUnparsableType, "leaf type has no name")
		}
		if t.Shape == nil {
			return errors.Wrapf(ErrUnparsableType, "type %q has no shape", t.Name.Name)
		}
		if visited[t] {
			return nil
		}
		visited[t] = true
		return validateShape(t, visited)
	case *ir.ListDescriptor:
		if t.Element == nil {
			return errors.Wrap(ErrContainerArity, "list requires an element type")
		}
		return validate(t.Element, visited)
	case *ir.OptionalDescriptor:
		if t.Inner == nil {
			return errors.Wrap(ErrContainerArity, "optional requires an inner type")
		}
		return validate(t.Inner, visited)
	case *ir.MapDescriptor:
		if t.Key == nil || t.Value == nil {
			return errors.Wrap(ErrContainerArity, "map requires a key and a value type")
		}
		if err := validate(t.Key, visited); err != nil {
			return err
		}
		return validate(t.Value, visited)
	case *ir.FallibleDescriptor:
		return errors.Wrap(ErrUnparsableType, "fallible is only valid as the outermost return type")
	default:
		return errors.Wrapf(ErrUnparsableType, "unknown descriptor %T", td)
	}
}

func validateShape(leaf *ir.LeafDescriptor, visited map[*ir.LeafDescriptor]bool) error {
	switch s := leaf.Shape.(type) {
	case *ir.StructShape:
		return validateFields(leaf.Name.Name, s.Fields, visited)
	case *ir.UnionShape:
		if s.Tag == "" {
			return errors.Wrapf(ErrUnparsableType, "union %q has no tag", leaf.Name.Name)
		}
		if len(s.Variants) == 0 {
			return errors.Wrapf(ErrUnparsableType, "union %q has no variants", leaf.Name.Name)
		}
		for _, v := range s.Variants {
			if v.Name == "" {
				return errors.Wrapf(ErrUnparsableType, "union %q has an unnamed variant", leaf.Name.Name)
			}
			if err := validateFields(leaf.Name.Name+"."+v.Name, v.Fields, visited); err != nil {
				return err
			}
		}
	case *ir.EnumShape:
		if len(s.Members) == 0 {
			return errors.Wrapf(ErrUnparsableType, "enum %q has no members", leaf.Name.Name)
		}
	case *ir.AliasShape:
		if err := validate(s.Underlying, visited); err != nil {
			return errors.Wrapf(err, "alias %q", leaf.Name.Name)
		}
	}
	return nil
}

func validateFields(owner string, fields []ir.FieldDescriptor, visited map[*ir.LeafDescriptor]bool) error {
	for _, f := range fields {
		if f.Skip {
			continue
		}
		if err := validate(f.Type, visited); err != nil {
			return errors.Wrapf(err, "%s.%s", owner, f.Name)
		}
	}
	return nil
}
