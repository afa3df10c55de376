package ir

import "reflect"

// ParamRole says who supplies a formal parameter.
type ParamRole int

const (
	RoleArgument ParamRole = iota // Decoded from the caller's payload
	RoleReceiver                  // The method receiver, bound by the host
	RoleContext                   // The call context.Context, supplied by the runtime
)

// RawParam is a formal parameter exactly as the host declares it.
type RawParam struct {
	Name string
	Type TypeDescriptor
	Role ParamRole
}

// Binding is the invocation reference of a method: a Go function taking
// the optional receiver, a context.Context, and then the contract's
// parameters in declared order.
type Binding struct {
	Func     reflect.Value
	Receiver reflect.Value
}

// IsZero reports whether no function is bound.
func (b Binding) IsZero() bool {
	return !b.Func.IsValid()
}

// RawMethod is one entry of a host's declared operation set, before
// normalization.
type RawMethod struct {
	// Name is the wire name callers dispatch on.
	Name string

	// Async is true when the method is a cancellable blocking call
	// (its first non-receiver parameter is a context.Context).
	Async bool

	// Params is the full formal parameter list, including implicit ones.
	Params []RawParam

	// Return is the annotated return type, possibly wrapped in Fallible.
	// A nil Return is treated as Void.
	Return TypeDescriptor

	Documentation Documentation
	Source        Source
	Binding       Binding
}

// Param is a caller-supplied parameter of a contract.
type Param struct {
	Name string
	Type TypeDescriptor
}

// MethodContract is the normalized description of one exposed operation.
type MethodContract struct {
	Name  string
	Async bool

	// Params excludes receiver and context parameters.
	Params []Param

	// Return is the success descriptor, already unwrapped from Fallible.
	Return TypeDescriptor

	// Fallible is true when failures are reported through the error envelope.
	Fallible bool

	Documentation Documentation
	Source        Source
	Binding       Binding
}

// DeclaredReturn returns the return descriptor as declared, re-wrapped in
// Fallible when the contract is fallible.
func (c MethodContract) DeclaredReturn() TypeDescriptor {
	if c.Fallible {
		return Fallible(c.Return)
	}
	return c.Return
}

// ParamNames returns the parameter names in declared order.
func (c MethodContract) ParamNames() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return names
}
