package provider

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/ir"
)

// MethodDecl declares one method of a host for the reflection provider.
type MethodDecl struct {
	// Name is the wire name. Empty means SnakeCase of the Go method name,
	// which is only known for decls built by DeclsFromType.
	Name string

	// Func is a method expression ((*Host).Method), a method value
	// (host.Method) or a plain func.
	Func any

	// ParamNames names the caller-supplied parameters in declared order.
	// Reflection cannot see Go parameter names; missing ones become argN.
	ParamNames []string

	// Doc is the method's documentation text.
	Doc string

	goName string
}

// EnumValuer is implemented by named string and integer types that form a
// closed set of literal values.
type EnumValuer interface {
	EnumValues() []any
}

// SurfaceTyper is implemented by types that describe their own wire shape,
// such as tagged unions, which Go cannot express directly.
type SurfaceTyper interface {
	SurfaceType() ir.TypeDescriptor
}

var (
	contextType       = reflect.TypeFor[context.Context]()
	errorType         = reflect.TypeFor[error]()
	timeType          = reflect.TypeFor[time.Time]()
	durationType      = reflect.TypeFor[time.Duration]()
	jsonNumberType    = reflect.TypeFor[json.Number]()
	rawMessageType    = reflect.TypeFor[json.RawMessage]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	enumValuerType    = reflect.TypeFor[EnumValuer]()
	surfaceTyperType  = reflect.TypeFor[SurfaceTyper]()
)

// ReflectionProvider builds raw methods from live Go values.
// Descriptors of named types are cached, so a type referenced from several
// methods maps to a single leaf. A provider is not safe for concurrent use.
type ReflectionProvider struct {
	cache    map[reflect.Type]*ir.LeafDescriptor
	warnings []ir.Warning
}

// NewReflectionProvider returns an empty provider.
func NewReflectionProvider() *ReflectionProvider {
	return &ReflectionProvider{cache: make(map[reflect.Type]*ir.LeafDescriptor)}
}

// Warnings returns the non-fatal issues found so far.
func (p *ReflectionProvider) Warnings() []ir.Warning {
	return p.warnings
}

func (p *ReflectionProvider) addWarning(code, message, typeName string) {
	p.warnings = append(p.warnings, ir.Warning{Code: code, Message: message, TypeName: typeName})
}

// RawMethods converts decls into raw methods bound to host. A decl whose
// first parameter has host's type is treated as a method expression and its
// receiver is bound to host. host may be nil when every decl is a method
// value or plain func.
func (p *ReflectionProvider) RawMethods(host any, decls []MethodDecl) ([]ir.RawMethod, error) {
	var hostType reflect.Type
	var hostValue reflect.Value
	if host != nil {
		hostValue = reflect.ValueOf(host)
		hostType = hostValue.Type()
	}

	out := make([]ir.RawMethod, 0, len(decls))
	for _, d := range decls {
		m, err := p.rawMethod(hostType, hostValue, d)
		if err != nil {
			return nil, errors.Wrapf(err, "method %q", d.wireName())
		}
		out = append(out, m)
	}
	return out, nil
}

func (d MethodDecl) wireName() string {
	if d.Name != "" {
		return d.Name
	}
	return SnakeCase(d.goName)
}

func (p *ReflectionProvider) rawMethod(hostType reflect.Type, hostValue reflect.Value, d MethodDecl) (ir.RawMethod, error) {
	fv := reflect.ValueOf(d.Func)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return ir.RawMethod{}, errors.Wrapf(contract.ErrInvalidMethod, "Func is %T, want a func", d.Func)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return ir.RawMethod{}, errors.Wrap(contract.ErrInvalidMethod, "variadic methods are not supported")
	}

	m := ir.RawMethod{
		Name:          d.wireName(),
		Documentation: docFromText(d.Doc),
		Binding:       ir.Binding{Func: fv},
	}

	i := 0
	if hostType != nil && ft.NumIn() > 0 && ft.In(0) == hostType {
		m.Params = append(m.Params, ir.RawParam{Name: "recv", Role: ir.RoleReceiver})
		m.Binding.Receiver = hostValue
		i++
	}
	if i < ft.NumIn() && ft.In(i) == contextType {
		m.Async = true
		m.Params = append(m.Params, ir.RawParam{Name: "ctx", Role: ir.RoleContext})
		i++
	}

	nargs := ft.NumIn() - i
	if len(d.ParamNames) > nargs {
		return ir.RawMethod{}, errors.Wrapf(contract.ErrInvalidParam,
			"%d parameter names for %d parameters", len(d.ParamNames), nargs)
	}
	if len(d.ParamNames) < nargs {
		p.addWarning("UNNAMED_PARAMS",
			fmt.Sprintf("method %s: %d of %d parameters are unnamed", m.Name, nargs-len(d.ParamNames), nargs), "")
	}

	for j := 0; j < nargs; j++ {
		td, err := p.TypeOf(ft.In(i + j))
		if err != nil {
			return ir.RawMethod{}, err
		}
		name := fmt.Sprintf("arg%d", j)
		if j < len(d.ParamNames) {
			name = d.ParamNames[j]
		}
		m.Params = append(m.Params, ir.RawParam{Name: name, Type: td, Role: ir.RoleArgument})
	}

	ret, err := p.returnType(ft)
	if err != nil {
		return ir.RawMethod{}, err
	}
	m.Return = ret
	return m, nil
}

// returnType maps (), (T), (error) and (T, error) result lists.
func (p *ReflectionProvider) returnType(ft reflect.Type) (ir.TypeDescriptor, error) {
	switch ft.NumOut() {
	case 0:
		return ir.Void(), nil
	case 1:
		if ft.Out(0) == errorType {
			return ir.Fallible(ir.Void()), nil
		}
		return p.TypeOf(ft.Out(0))
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.Wrapf(contract.ErrUnparsableType, "second result is %s, want error", ft.Out(1))
		}
		td, err := p.TypeOf(ft.Out(0))
		if err != nil {
			return nil, err
		}
		return ir.Fallible(td), nil
	default:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%d results, want at most 2", ft.NumOut())
	}
}

// TypeOf returns the descriptor of a Go type.
func (p *ReflectionProvider) TypeOf(t reflect.Type) (ir.TypeDescriptor, error) {
	if t.Kind() != reflect.Pointer {
		if td, ok := p.hookType(t); ok {
			return td, nil
		}
	}

	switch t {
	case timeType:
		return ir.Time(), nil
	case durationType:
		return ir.Duration(), nil
	case jsonNumberType:
		return ir.String(), nil
	case rawMessageType:
		return ir.Any(), nil
	}

	if t.Kind() != reflect.Pointer && (t.Implements(enumValuerType) || reflect.PointerTo(t).Implements(enumValuerType)) {
		return p.enumType(t)
	}

	switch t.Kind() {
	case reflect.Pointer:
		inner, err := p.TypeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return ir.Optional(inner), nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return ir.Bytes(), nil
		}
		elem, err := p.TypeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return ir.List(elem), nil

	case reflect.Array:
		elem, err := p.TypeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return ir.List(elem), nil

	case reflect.Map:
		return p.mapType(t)

	case reflect.Struct:
		return p.structType(t)

	case reflect.Interface:
		if t.NumMethod() == 0 {
			return ir.Any(), nil
		}
		return nil, errors.Wrapf(contract.ErrUnparsableType, "interface type %s", t)

	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128,
		reflect.UnsafePointer, reflect.Uintptr:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%s has no wire representation", t)
	}

	prim, err := basicType(t)
	if err != nil {
		return nil, err
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return prim, nil
	}
	if leaf, ok := p.cache[t]; ok {
		return leaf, nil
	}
	leaf := ir.Named(t.Name(), t.PkgPath(), &ir.AliasShape{Underlying: prim})
	p.cache[t] = leaf
	return leaf, nil
}

// hookType consults SurfaceType on the value or pointer receiver.
func (p *ReflectionProvider) hookType(t reflect.Type) (ir.TypeDescriptor, bool) {
	var v any
	switch {
	case t.Implements(surfaceTyperType):
		v = reflect.Zero(t).Interface()
	case reflect.PointerTo(t).Implements(surfaceTyperType):
		v = reflect.New(t).Interface()
	default:
		return nil, false
	}
	td := v.(SurfaceTyper).SurfaceType()
	if td == nil {
		return nil, false
	}
	return td, true
}

func basicType(t reflect.Type) (*ir.LeafDescriptor, error) {
	switch t.Kind() {
	case reflect.Bool:
		return ir.Bool(), nil
	case reflect.String:
		return ir.String(), nil
	case reflect.Int:
		return ir.Int(0), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ir.Int(t.Bits()), nil
	case reflect.Uint:
		return ir.Uint(0), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ir.Uint(t.Bits()), nil
	case reflect.Float32, reflect.Float64:
		return ir.Float(t.Bits()), nil
	default:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "unsupported kind %s", t.Kind())
	}
}

func (p *ReflectionProvider) enumType(t reflect.Type) (ir.TypeDescriptor, error) {
	if leaf, ok := p.cache[t]; ok {
		return leaf, nil
	}

	var ev EnumValuer
	if t.Implements(enumValuerType) {
		ev = reflect.Zero(t).Interface().(EnumValuer)
	} else {
		ev = reflect.New(t).Interface().(EnumValuer)
	}

	values := ev.EnumValues()
	shape := &ir.EnumShape{Members: make([]ir.EnumMember, 0, len(values))}
	for _, v := range values {
		member, err := enumMember(v)
		if err != nil {
			return nil, errors.Wrapf(err, "enum %s", t)
		}
		shape.Members = append(shape.Members, member)
	}

	leaf := ir.Named(t.Name(), t.PkgPath(), shape)
	p.cache[t] = leaf
	return leaf, nil
}

func enumMember(v any) (ir.EnumMember, error) {
	rv := reflect.ValueOf(v)
	var value any
	switch rv.Kind() {
	case reflect.String:
		value = rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value = int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		value = rv.Float()
	default:
		return ir.EnumMember{}, errors.Wrapf(contract.ErrUnparsableType, "enum value %v of kind %s", v, rv.Kind())
	}

	name := fmt.Sprint(value)
	if s, ok := v.(fmt.Stringer); ok {
		name = s.String()
	}
	return ir.EnumMember{Name: name, Value: value}, nil
}

func (p *ReflectionProvider) mapType(t reflect.Type) (ir.TypeDescriptor, error) {
	kt := t.Key()
	switch kt.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		if !kt.Implements(textMarshalerType) {
			return nil, errors.Wrapf(contract.ErrUnparsableType, "map key %s is not a string, integer or TextMarshaler", kt)
		}
	}

	var key ir.TypeDescriptor = ir.String()
	if kt.Kind() != reflect.Struct {
		var err error
		if key, err = p.TypeOf(kt); err != nil {
			return nil, err
		}
	}
	value, err := p.TypeOf(t.Elem())
	if err != nil {
		return nil, err
	}
	return ir.Map(key, value), nil
}

func (p *ReflectionProvider) structType(t reflect.Type) (ir.TypeDescriptor, error) {
	if t.NumField() == 0 {
		return ir.Empty(), nil
	}
	if t.Name() == "" {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "anonymous struct %s must be named", t)
	}
	if leaf, ok := p.cache[t]; ok {
		return leaf, nil
	}

	// Cache before the fields so recursive references resolve to this leaf.
	shape := &ir.StructShape{}
	leaf := ir.Named(t.Name(), t.PkgPath(), shape)
	p.cache[t] = leaf

	fields, err := p.fields(t)
	if err != nil {
		delete(p.cache, t)
		return nil, errors.Wrapf(err, "struct %s", t.Name())
	}
	shape.Fields = fields
	return leaf, nil
}

// fields collects serialized fields, flattening untagged embedded structs
// as encoding/json does.
func (p *ReflectionProvider) fields(t reflect.Type) ([]ir.FieldDescriptor, error) {
	var out []ir.FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")

		if f.Anonymous && tag == "" {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				embedded, err := p.fields(et)
				if err != nil {
					return nil, err
				}
				out = append(out, embedded...)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		jsonName, optional, skip, stringEncoded := parseJSONTag(tag, f.Name)
		if skip {
			continue
		}

		var td ir.TypeDescriptor
		if stringEncoded {
			td = ir.String()
		} else {
			var err error
			if td, err = p.TypeOf(f.Type); err != nil {
				return nil, errors.Wrapf(err, "field %s", f.Name)
			}
		}

		out = append(out, ir.FieldDescriptor{
			Name:        f.Name,
			Type:        td,
			JSONName:    jsonName,
			Optional:    optional,
			ValidateTag: f.Tag.Get("validate"),
		})
	}
	return out, nil
}

// DeclsFromType lists the exported methods of host's type as method
// expressions, sorted by Go name. nameFunc maps Go names to wire names;
// nil means SnakeCase.
func DeclsFromType(host any, nameFunc func(string) string) []MethodDecl {
	if nameFunc == nil {
		nameFunc = SnakeCase
	}
	t := reflect.TypeOf(host)
	if t == nil {
		return nil
	}

	decls := make([]MethodDecl, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		decls = append(decls, MethodDecl{
			Name:   nameFunc(m.Name),
			Func:   m.Func.Interface(),
			goName: m.Name,
		})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].goName < decls[j].goName })
	return decls
}

// GoName returns the Go method name of a decl built by DeclsFromType.
func (d MethodDecl) GoName() string {
	return d.goName
}
