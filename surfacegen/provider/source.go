package provider

import (
	"context"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/ir"
)

// SourceOptions selects the host type analyzed by SourceProvider.
type SourceOptions struct {
	// Dir is the directory packages are resolved from. Empty means the
	// current directory.
	Dir string

	// Package is a package pattern or import path, e.g. "./internal/accounts".
	Package string

	// TypeName is the host type whose methods form the surface.
	TypeName string

	// NameFunc maps Go method names to wire names. Nil means SnakeCase.
	NameFunc func(string) string
}

// SourceProvider reads host declarations from Go source.
// It recovers what reflection cannot: declaration order, parameter names
// and doc comments. Its methods carry no binding.
type SourceProvider struct {
	warnings []ir.Warning
}

// Warnings returns the non-fatal issues found by the last run.
func (p *SourceProvider) Warnings() []ir.Warning {
	return p.warnings
}

// MethodDecls returns the exported methods of opts.TypeName in declaration
// order, across the package's files in the order go/packages lists them.
func (p *SourceProvider) MethodDecls(ctx context.Context, opts SourceOptions) ([]ir.RawMethod, error) {
	if opts.Package == "" || opts.TypeName == "" {
		return nil, errors.New("source provider: package and type name are required")
	}
	nameFunc := opts.NameFunc
	if nameFunc == nil {
		nameFunc = SnakeCase
	}
	p.warnings = nil

	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, opts.Package)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load packages")
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found for %q", opts.Package)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, errors.Newf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
	}

	obj, ok := pkg.Types.Scope().Lookup(opts.TypeName).(*types.TypeName)
	if !ok {
		return nil, errors.Newf("type %s not found in %s", opts.TypeName, pkg.PkgPath)
	}

	conv := &typeConverter{
		provider: p,
		fset:     pkg.Fset,
		docs:     typeDocs(pkg),
		cache:    make(map[*types.TypeName]*ir.LeafDescriptor),
	}

	var out []ir.RawMethod
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || !fd.Name.IsExported() || receiverName(fd) != obj.Name() {
				continue
			}
			fn, ok := pkg.TypesInfo.Defs[fd.Name].(*types.Func)
			if !ok {
				continue
			}
			m, err := conv.method(fn, nameFunc(fd.Name.Name), fd.Doc.Text())
			if err != nil {
				return nil, errors.Wrapf(err, "method %s.%s", obj.Name(), fd.Name.Name)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// receiverName returns the base type name of a method receiver.
func receiverName(fd *ast.FuncDecl) string {
	if len(fd.Recv.List) == 0 {
		return ""
	}
	expr := fd.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.IndexExpr:
		if id, ok := e.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

// typeDocs indexes the doc comments of the package's type declarations.
func typeDocs(pkg *packages.Package) map[*types.TypeName]string {
	docs := make(map[*types.TypeName]string)
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				tn, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				docs[tn] = doc.Text()
			}
		}
	}
	return docs
}

// typeConverter maps go/types types to descriptors with the same rules as
// ReflectionProvider.TypeOf.
type typeConverter struct {
	provider *SourceProvider
	fset     *token.FileSet
	docs     map[*types.TypeName]string
	cache    map[*types.TypeName]*ir.LeafDescriptor
}

func (c *typeConverter) method(fn *types.Func, name, doc string) (ir.RawMethod, error) {
	sig := fn.Type().(*types.Signature)
	m := ir.RawMethod{
		Name:          name,
		Documentation: docFromText(doc),
		Source:        c.source(fn.Pos()),
		Params:        []ir.RawParam{{Name: "recv", Role: ir.RoleReceiver}},
	}
	if sig.Variadic() {
		return ir.RawMethod{}, errors.Wrap(contract.ErrInvalidMethod, "variadic methods are not supported")
	}

	params := sig.Params()
	i := 0
	if params.Len() > 0 && isContext(params.At(0).Type()) {
		m.Async = true
		m.Params = append(m.Params, ir.RawParam{Name: params.At(0).Name(), Role: ir.RoleContext})
		i++
	}
	first := i
	for ; i < params.Len(); i++ {
		v := params.At(i)
		td, err := c.convert(v.Type())
		if err != nil {
			return ir.RawMethod{}, errors.Wrapf(err, "parameter %s", v.Name())
		}
		pname := v.Name()
		if pname == "" || pname == "_" {
			pname = "arg" + strconv.Itoa(i-first)
			c.provider.warnings = append(c.provider.warnings, ir.Warning{
				Code:    "UNNAMED_PARAMS",
				Message: "method " + name + " has an unnamed parameter",
			})
		}
		m.Params = append(m.Params, ir.RawParam{Name: pname, Type: td, Role: ir.RoleArgument})
	}

	ret, err := c.results(sig.Results())
	if err != nil {
		return ir.RawMethod{}, err
	}
	m.Return = ret
	return m, nil
}

func (c *typeConverter) results(res *types.Tuple) (ir.TypeDescriptor, error) {
	switch res.Len() {
	case 0:
		return ir.Void(), nil
	case 1:
		if isError(res.At(0).Type()) {
			return ir.Fallible(ir.Void()), nil
		}
		return c.convert(res.At(0).Type())
	case 2:
		if !isError(res.At(1).Type()) {
			return nil, errors.Wrapf(contract.ErrUnparsableType, "second result is %s, want error", res.At(1).Type())
		}
		td, err := c.convert(res.At(0).Type())
		if err != nil {
			return nil, err
		}
		return ir.Fallible(td), nil
	default:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%d results, want at most 2", res.Len())
	}
}

func (c *typeConverter) convert(t types.Type) (ir.TypeDescriptor, error) {
	t = types.Unalias(t)

	if named, ok := t.(*types.Named); ok {
		return c.named(named)
	}

	switch u := t.(type) {
	case *types.Basic:
		return basicKind(u)
	case *types.Pointer:
		inner, err := c.convert(u.Elem())
		if err != nil {
			return nil, err
		}
		return ir.Optional(inner), nil
	case *types.Slice:
		if b, ok := u.Elem().Underlying().(*types.Basic); ok && b.Kind() == types.Byte {
			return ir.Bytes(), nil
		}
		elem, err := c.convert(u.Elem())
		if err != nil {
			return nil, err
		}
		return ir.List(elem), nil
	case *types.Array:
		elem, err := c.convert(u.Elem())
		if err != nil {
			return nil, err
		}
		return ir.List(elem), nil
	case *types.Map:
		return c.mapType(u)
	case *types.Interface:
		if u.Empty() {
			return ir.Any(), nil
		}
		return nil, errors.Wrapf(contract.ErrUnparsableType, "interface type %s", t)
	case *types.Struct:
		if u.NumFields() == 0 {
			return ir.Empty(), nil
		}
		return nil, errors.Wrapf(contract.ErrUnparsableType, "anonymous struct %s must be named", t)
	default:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%s has no wire representation", t)
	}
}

func (c *typeConverter) named(named *types.Named) (ir.TypeDescriptor, error) {
	obj := named.Obj()
	if obj.Pkg() == nil {
		// Predeclared named types; error is handled by the caller.
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%s has no wire representation", obj.Name())
	}

	switch obj.Pkg().Path() + "." + obj.Name() {
	case "time.Time":
		return ir.Time(), nil
	case "time.Duration":
		return ir.Duration(), nil
	case "encoding/json.Number":
		return ir.String(), nil
	case "encoding/json.RawMessage":
		return ir.Any(), nil
	}

	if named.TypeArgs().Len() > 0 {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "generic type %s", named)
	}
	if leaf, ok := c.cache[obj]; ok {
		return leaf, nil
	}
	if st, ok := named.Underlying().(*types.Struct); ok && st.NumFields() == 0 && !hasMethod(named, "SurfaceType") {
		return ir.Empty(), nil
	}

	leaf := ir.Named(obj.Name(), obj.Pkg().Path(), nil)
	leaf.Documentation = docFromText(c.docs[obj])
	leaf.Source = c.source(obj.Pos())
	c.cache[obj] = leaf

	shape, err := c.shape(named)
	if err != nil {
		delete(c.cache, obj)
		return nil, errors.Wrapf(err, "type %s", obj.Name())
	}
	leaf.Shape = shape
	return leaf, nil
}

func (c *typeConverter) shape(named *types.Named) (ir.Shape, error) {
	if hasMethod(named, "SurfaceType") {
		c.provider.warnings = append(c.provider.warnings, ir.Warning{
			Code:     "OPAQUE_SURFACE_TYPE",
			Message:  "SurfaceType is only evaluated by the reflection provider",
			TypeName: named.Obj().Name(),
		})
		return &ir.AliasShape{Underlying: ir.Any()}, nil
	}

	switch u := named.Underlying().(type) {
	case *types.Struct:
		fields, err := c.fields(u)
		if err != nil {
			return nil, err
		}
		return &ir.StructShape{Fields: fields}, nil
	case *types.Basic:
		if hasMethod(named, "EnumValues") {
			return c.enumShape(named)
		}
		prim, err := basicKind(u)
		if err != nil {
			return nil, err
		}
		return &ir.AliasShape{Underlying: prim}, nil
	default:
		td, err := c.convert(u)
		if err != nil {
			return nil, err
		}
		return &ir.AliasShape{Underlying: td}, nil
	}
}

func hasMethod(named *types.Named, name string) bool {
	for _, t := range []types.Type{named, types.NewPointer(named)} {
		if sel := types.NewMethodSet(t).Lookup(named.Obj().Pkg(), name); sel != nil {
			return true
		}
	}
	return false
}

// enumShape collects the package constants declared with the enum's type,
// in source order.
func (c *typeConverter) enumShape(named *types.Named) (*ir.EnumShape, error) {
	scope := named.Obj().Pkg().Scope()
	var consts []*types.Const
	for _, name := range scope.Names() {
		if k, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(k.Type(), named) {
			consts = append(consts, k)
		}
	}
	if len(consts) == 0 {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "enum %s has no constants", named.Obj().Name())
	}
	sort.Slice(consts, func(i, j int) bool { return consts[i].Pos() < consts[j].Pos() })

	shape := &ir.EnumShape{Members: make([]ir.EnumMember, len(consts))}
	for i, k := range consts {
		shape.Members[i] = ir.EnumMember{Name: k.Name(), Value: constantValue(k.Val())}
	}
	return shape, nil
}

func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		i64, _ := constant.Int64Val(v)
		return i64
	case constant.Float:
		f64, _ := constant.Float64Val(v)
		return f64
	default:
		return v.String()
	}
}

func (c *typeConverter) fields(st *types.Struct) ([]ir.FieldDescriptor, error) {
	var out []ir.FieldDescriptor
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		jsonTag := tag.Get("json")

		if f.Embedded() && jsonTag == "" {
			et := f.Type()
			if ptr, ok := et.(*types.Pointer); ok {
				et = ptr.Elem()
			}
			if est, ok := et.Underlying().(*types.Struct); ok {
				embedded, err := c.fields(est)
				if err != nil {
					return nil, err
				}
				out = append(out, embedded...)
				continue
			}
		}
		if !f.Exported() {
			continue
		}

		jsonName, optional, skip, stringEncoded := parseJSONTag(jsonTag, f.Name())
		if skip {
			continue
		}

		var td ir.TypeDescriptor
		if stringEncoded {
			td = ir.String()
		} else {
			var err error
			if td, err = c.convert(f.Type()); err != nil {
				return nil, errors.Wrapf(err, "field %s", f.Name())
			}
		}
		out = append(out, ir.FieldDescriptor{
			Name:        f.Name(),
			Type:        td,
			JSONName:    jsonName,
			Optional:    optional,
			ValidateTag: tag.Get("validate"),
		})
	}
	return out, nil
}

func (c *typeConverter) mapType(m *types.Map) (ir.TypeDescriptor, error) {
	if !isValidMapKey(m.Key()) {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "map key %s is not a string, integer or TextMarshaler", m.Key())
	}
	var key ir.TypeDescriptor = ir.String()
	if _, ok := m.Key().Underlying().(*types.Struct); !ok {
		var err error
		if key, err = c.convert(m.Key()); err != nil {
			return nil, errors.Wrap(err, "map key")
		}
	}
	value, err := c.convert(m.Elem())
	if err != nil {
		return nil, err
	}
	return ir.Map(key, value), nil
}

func isValidMapKey(t types.Type) bool {
	if b, ok := t.Underlying().(*types.Basic); ok {
		return b.Info()&(types.IsString|types.IsInteger) != 0
	}
	if named, ok := types.Unalias(t).(*types.Named); ok {
		return hasMethod(named, "MarshalText")
	}
	return false
}

func basicKind(b *types.Basic) (*ir.LeafDescriptor, error) {
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return ir.Bool(), nil
	case types.String, types.UntypedString:
		return ir.String(), nil
	case types.Int, types.UntypedInt:
		return ir.Int(0), nil
	case types.Int8:
		return ir.Int(8), nil
	case types.Int16:
		return ir.Int(16), nil
	case types.Int32, types.UntypedRune:
		return ir.Int(32), nil
	case types.Int64:
		return ir.Int(64), nil
	case types.Uint:
		return ir.Uint(0), nil
	case types.Uint8:
		return ir.Uint(8), nil
	case types.Uint16:
		return ir.Uint(16), nil
	case types.Uint32:
		return ir.Uint(32), nil
	case types.Uint64:
		return ir.Uint(64), nil
	case types.Float32:
		return ir.Float(32), nil
	case types.Float64, types.UntypedFloat:
		return ir.Float(64), nil
	default:
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%s has no wire representation", b)
	}
}

func isContext(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	return ok && named.Obj().Pkg() != nil &&
		named.Obj().Pkg().Path() == "context" && named.Obj().Name() == "Context"
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func (c *typeConverter) source(pos token.Pos) ir.Source {
	if !pos.IsValid() || c.fset == nil {
		return ir.Source{}
	}
	position := c.fset.Position(pos)
	return ir.Source{File: position.Filename, Line: position.Line, Column: position.Column}
}

// ApplySourceOrder reorders reflection decls to follow source declaration
// order and fills missing parameter names and docs from src. Decls are
// matched by wire name; decls absent from src keep their relative order
// after the matched ones.
func ApplySourceOrder(decls []MethodDecl, src []ir.RawMethod) []MethodDecl {
	index := make(map[string]int, len(src))
	for i, m := range src {
		index[m.Name] = i
	}

	out := make([]MethodDecl, len(decls))
	copy(out, decls)
	for i := range out {
		j, ok := index[out[i].wireName()]
		if !ok {
			continue
		}
		m := src[j]
		if len(out[i].ParamNames) == 0 {
			for _, p := range m.Params {
				if p.Role == ir.RoleArgument {
					out[i].ParamNames = append(out[i].ParamNames, p.Name)
				}
			}
		}
		if out[i].Doc == "" {
			out[i].Doc = m.Documentation.Body
		}
	}

	rank := func(d MethodDecl) int {
		if j, ok := index[d.wireName()]; ok {
			return j
		}
		return len(src)
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}
