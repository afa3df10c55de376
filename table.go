package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/ir"
	"github.com/broady/surface/surfacegen/provider"
	surfaceschema "github.com/broady/surface/surfacegen/schema"
)

// ErrUnbound is returned by BuildTable for a contract without an
// invocation reference.
var ErrUnbound = errors.New("method has no invocation reference")

var (
	validate      = newValidator()
	schemaDecoder = schema.NewDecoder()

	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParamEncoding selects how a request payload maps onto parameters.
type ParamEncoding string

const (
	// ParamsEither accepts an object or an array, chosen by the first byte.
	ParamsEither ParamEncoding = "either"
	// ParamsKeyed accepts only a JSON object routed by parameter name.
	ParamsKeyed ParamEncoding = "keyed"
	// ParamsPositional accepts only a JSON array in declared order.
	ParamsPositional ParamEncoding = "positional"
)

// ParseParamEncoding parses a ParamEncoding name. The empty string is
// ParamsEither.
func ParseParamEncoding(s string) (ParamEncoding, error) {
	switch ParamEncoding(s) {
	case "", ParamsEither:
		return ParamsEither, nil
	case ParamsKeyed, ParamsPositional:
		return ParamEncoding(s), nil
	default:
		return "", errors.Newf("unknown param encoding %q", s)
	}
}

// Handler is one entry of a dispatch table: the synthesized parameter
// object of a method and its bound invocation.
type Handler struct {
	contract  ir.MethodContract
	paramType reflect.Type
	fn        reflect.Value
	recv      reflect.Value
	errOut    int
	valueOut  int
	schemas   *surfaceschema.Set
}

// Contract returns the method contract the handler was built from.
func (h *Handler) Contract() ir.MethodContract { return h.contract }

// Name returns the wire name.
func (h *Handler) Name() string { return h.contract.Name }

// ParamType returns the parameter object type, or nil for a method without
// parameters.
func (h *Handler) ParamType() reflect.Type { return h.paramType }

func newHandler(c ir.MethodContract, schemas *surfaceschema.Set) (*Handler, error) {
	if c.Binding.IsZero() {
		return nil, errors.Wrapf(ErrUnbound, "method %q", c.Name)
	}
	fn := c.Binding.Func
	if fn.Kind() != reflect.Func {
		return nil, errors.Newf("method %q: binding is %s, not a func", c.Name, fn.Kind())
	}
	ft := fn.Type()

	offset := 0
	if c.Binding.Receiver.IsValid() {
		offset++
	}
	if ft.NumIn() <= offset || ft.In(offset) != contextType {
		return nil, errors.Wrapf(contract.ErrNonAsyncMethod, "method %q: bound func does not take a context.Context", c.Name)
	}
	offset++
	if ft.NumIn() != offset+len(c.Params) {
		return nil, errors.Newf("method %q: bound func takes %d parameters, contract declares %d",
			c.Name, ft.NumIn()-offset, len(c.Params))
	}

	h := &Handler{
		contract: c,
		fn:       fn,
		recv:     c.Binding.Receiver,
		errOut:   -1,
		valueOut: -1,
		schemas:  schemas,
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			h.errOut = 0
		} else {
			h.valueOut = 0
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.Newf("method %q: second result must be error", c.Name)
		}
		h.valueOut, h.errOut = 0, 1
	default:
		return nil, errors.Newf("method %q: too many results", c.Name)
	}
	if c.Fallible != (h.errOut >= 0) {
		return nil, errors.Newf("method %q: contract fallibility does not match the bound func", c.Name)
	}

	if len(c.Params) > 0 {
		fields := make([]reflect.StructField, len(c.Params))
		for i, p := range c.Params {
			fields[i] = reflect.StructField{
				Name: fmt.Sprintf("P%d", i),
				Type: ft.In(offset + i),
				Tag:  reflect.StructTag(fmt.Sprintf(`json:%q schema:%q`, p.Name, p.Name)),
			}
		}
		h.paramType = reflect.StructOf(fields)
	}
	return h, nil
}

// Decode decodes a raw payload into a new parameter object and validates
// it. It returns nil for a method without parameters, whatever the payload.
func (h *Handler) Decode(payload json.RawMessage, enc ParamEncoding) (any, *Error) {
	if h.paramType == nil {
		return nil, nil
	}
	ptr := reflect.New(h.paramType)

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		switch trimmed[0] {
		case '{':
			if enc == ParamsPositional {
				return nil, Errorf(CodeInvalidParams, "%s: expected positional params", h.Name())
			}
			if err := h.decodeKeyed(trimmed, ptr.Elem()); err != nil {
				return nil, err
			}
		case '[':
			if enc == ParamsKeyed {
				return nil, Errorf(CodeInvalidParams, "%s: expected keyed params", h.Name())
			}
			if err := h.decodePositional(trimmed, ptr.Elem()); err != nil {
				return nil, err
			}
		default:
			return nil, Errorf(CodeInvalidParams, "%s: params must be an object or an array", h.Name())
		}
	}

	if err := h.validate(ptr); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// DecodeQuery decodes URL query values into a new keyed parameter object.
func (h *Handler) DecodeQuery(values map[string][]string) (any, *Error) {
	if h.paramType == nil {
		return nil, nil
	}
	ptr := reflect.New(h.paramType)
	if err := schemaDecoder.Decode(ptr.Interface(), values); err != nil {
		return nil, Errorf(CodeInvalidParams, "%s: failed to decode query: %v", h.Name(), err)
	}
	if err := h.validate(ptr); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// decodeKeyed routes object members to parameters by exact name. Unknown
// members are ignored.
func (h *Handler) decodeKeyed(data []byte, dst reflect.Value) *Error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return Errorf(CodeInvalidParams, "%s: invalid params: %v", h.Name(), err)
	}
	for i, p := range h.contract.Params {
		raw, ok := members[p.Name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst.Field(i).Addr().Interface()); err != nil {
			return Errorf(CodeInvalidParams, "%s: param %q: %v", h.Name(), p.Name, err)
		}
	}
	return nil
}

func (h *Handler) decodePositional(data []byte, dst reflect.Value) *Error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return Errorf(CodeInvalidParams, "%s: invalid params: %v", h.Name(), err)
	}
	if len(elems) > dst.NumField() {
		return Errorf(CodeInvalidParams, "%s: got %d params, want at most %d", h.Name(), len(elems), dst.NumField())
	}
	for i, elem := range elems {
		if err := json.Unmarshal(elem, dst.Field(i).Addr().Interface()); err != nil {
			return Errorf(CodeInvalidParams, "%s: param %q: %v", h.Name(), h.contract.Params[i].Name, err)
		}
	}
	return nil
}

func (h *Handler) validate(ptr reflect.Value) *Error {
	if err := validate.Struct(ptr.Interface()); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			return DefaultErrorTransformer(valErrs)
		}
		return Errorf(CodeInvalidParams, "%s: %v", h.Name(), err)
	}
	return nil
}

// checkSchema validates the raw payload against the method's compiled
// parameter schema.
func (h *Handler) checkSchema(payload json.RawMessage) *Error {
	if h.schemas == nil {
		return nil
	}
	err := h.schemas.Validate(h.Name(), payload)
	if err == nil {
		return nil
	}
	var valErr *surfaceschema.ValidationError
	if errors.As(err, &valErr) {
		return NewError(CodeInvalidParams, valErr.Error()).WithDetail("causes", valErr.Causes)
	}
	return Errorf(CodeInvalidParams, "%s: %v", h.Name(), err)
}

// Invoke calls the bound function with ctx and the decoded parameter
// object. A void result is nil.
func (h *Handler) Invoke(ctx context.Context, params any) (any, error) {
	args := make([]reflect.Value, 0, h.fn.Type().NumIn())
	if h.recv.IsValid() {
		args = append(args, h.recv)
	}
	args = append(args, reflect.ValueOf(&ctx).Elem())

	if h.paramType != nil {
		pv := reflect.ValueOf(params)
		if pv.Kind() != reflect.Pointer || pv.Elem().Type() != h.paramType {
			return nil, Errorf(CodeInternal, "%s: interceptor replaced params with %T", h.Name(), params)
		}
		for i := 0; i < h.paramType.NumField(); i++ {
			args = append(args, pv.Elem().Field(i))
		}
	}

	out := h.fn.Call(args)
	if h.errOut >= 0 && !out[h.errOut].IsNil() {
		return nil, out[h.errOut].Interface().(error)
	}
	if h.valueOut < 0 {
		return nil, nil
	}
	return out[h.valueOut].Interface(), nil
}

// Table is a dispatch table keyed by wire name. A Table is read-only after
// BuildTable and safe for concurrent use.
type Table struct {
	contracts []ir.MethodContract
	handlers  map[string]*Handler
}

// BuildTable builds a handler for every contract. Any error aborts and no
// table is returned. Parameter schemas are always compiled; whether they
// are enforced is decided by App.WithParamSchemas.
func BuildTable(contracts []ir.MethodContract) (*Table, error) {
	schemas, err := surfaceschema.Compile(contracts)
	if err != nil {
		return nil, errors.Wrap(err, "compile param schemas")
	}
	t := &Table{
		contracts: contracts,
		handlers:  make(map[string]*Handler, len(contracts)),
	}
	for _, c := range contracts {
		if _, dup := t.handlers[c.Name]; dup {
			return nil, errors.Wrapf(contract.ErrDuplicateMethod, "%q", c.Name)
		}
		h, err := newHandler(c, schemas)
		if err != nil {
			return nil, err
		}
		t.handlers[c.Name] = h
	}
	return t, nil
}

// Bind reflects over host and decls, extracts the contracts and builds
// their table.
func Bind(host any, decls []provider.MethodDecl) (*Table, error) {
	raw, err := provider.NewReflectionProvider().RawMethods(host, decls)
	if err != nil {
		return nil, err
	}
	contracts, err := contract.Extract(raw)
	if err != nil {
		return nil, errors.Wrap(err, "extract contracts")
	}
	return BuildTable(contracts)
}

// MustBind is like Bind but panics on error.
func MustBind(host any, decls []provider.MethodDecl) *Table {
	t, err := Bind(host, decls)
	if err != nil {
		panic(err)
	}
	return t
}

// Contracts returns the contracts in declaration order.
func (t *Table) Contracts() []ir.MethodContract { return t.contracts }

// Names returns the wire names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.contracts))
	for i, c := range t.contracts {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the handler of a wire name.
func (t *Table) Lookup(name string) (*Handler, bool) {
	h, ok := t.handlers[name]
	return h, ok
}

// Dispatch decodes payload, invokes the method and maps any failure to an
// envelope, using the default transport settings. An unknown method is
// CodeMethodNotFound.
func (t *Table) Dispatch(ctx context.Context, method string, payload json.RawMessage) (any, *Error) {
	h, ok := t.Lookup(method)
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "method not found: %s", method)
	}
	var d dispatcher
	return d.dispatch(newCall(ctx, method, ""), h, payload)
}
