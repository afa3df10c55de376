package provider

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/ir"
)

// contractFile is the YAML layout of a contract description:
//
//	types:
//	  Contact:
//	    doc: A known address.
//	    fields:
//	      - {name: id, type: number}
//	      - {name: display_name, type: string}
//	methods:
//	  - name: contacts_get_contact
//	    params:
//	      - {name: account_id, type: number}
//	    returns: result<Contact>
//
// Inside a flow mapping such as {name: addr, type: "string?"}, type
// expressions using "?", "[]" or a comma ("map<string, number>") must be
// quoted. Block style needs no quotes.
type contractFile struct {
	Types   map[string]typeDef `yaml:"types"`
	Methods []yaml.Node        `yaml:"methods"`
}

type typeDef struct {
	Doc    string     `yaml:"doc"`
	Fields []fieldDef `yaml:"fields"`
	Enum   []any      `yaml:"enum"`
	Union  *unionDef  `yaml:"union"`
	Alias  string     `yaml:"alias"`
}

type fieldDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
	Doc      string `yaml:"doc"`
}

type unionDef struct {
	Tag      string       `yaml:"tag"`
	Variants []variantDef `yaml:"variants"`
}

type variantDef struct {
	Name   string     `yaml:"name"`
	Fields []fieldDef `yaml:"fields"`
}

type methodDef struct {
	Name    string     `yaml:"name"`
	Async   *bool      `yaml:"async"`
	Params  []fieldDef `yaml:"params"`
	Returns string     `yaml:"returns"`
	Doc     string     `yaml:"doc"`
}

// LoadContractFile reads a YAML contract description. Methods have no
// binding; they can drive generation but not dispatch.
func LoadContractFile(path string) ([]ir.RawMethod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read contract file")
	}
	return ParseContract(data, path)
}

// ParseContract parses contract YAML. filename is recorded in each
// method's source location.
func ParseContract(data []byte, filename string) ([]ir.RawMethod, error) {
	var f contractFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}

	named, err := buildNamedTypes(f.Types)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}

	out := make([]ir.RawMethod, 0, len(f.Methods))
	for i := range f.Methods {
		node := &f.Methods[i]
		var md methodDef
		if err := node.Decode(&md); err != nil {
			return nil, errors.Wrapf(err, "%s:%d", filename, node.Line)
		}
		m, err := md.raw(named)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: method %q", filename, node.Line, md.Name)
		}
		m.Source = ir.Source{File: filename, Line: node.Line, Column: node.Column}
		out = append(out, m)
	}
	return out, nil
}

func (md methodDef) raw(named map[string]*ir.LeafDescriptor) (ir.RawMethod, error) {
	m := ir.RawMethod{
		Name:          md.Name,
		Async:         md.Async == nil || *md.Async,
		Documentation: docFromText(md.Doc),
	}
	if m.Async {
		m.Params = append(m.Params, ir.RawParam{Name: "ctx", Role: ir.RoleContext})
	}
	for _, p := range md.Params {
		td, err := ParseTypeExpr(p.Type, named)
		if err != nil {
			return ir.RawMethod{}, errors.Wrapf(err, "parameter %q", p.Name)
		}
		if p.Optional {
			td = ir.Optional(td)
		}
		m.Params = append(m.Params, ir.RawParam{Name: p.Name, Type: td, Role: ir.RoleArgument})
	}

	m.Return = ir.Void()
	if md.Returns != "" {
		td, err := ParseTypeExpr(md.Returns, named)
		if err != nil {
			return ir.RawMethod{}, errors.Wrap(err, "return type")
		}
		m.Return = td
	}
	return m, nil
}

// buildNamedTypes creates every named leaf first so definitions may refer
// to each other, including recursively.
func buildNamedTypes(defs map[string]typeDef) (map[string]*ir.LeafDescriptor, error) {
	named := make(map[string]*ir.LeafDescriptor, len(defs))
	names := make([]string, 0, len(defs))
	for name := range defs {
		if !isTypeName(name) {
			return nil, errors.Wrapf(contract.ErrUnparsableType, "invalid type name %q", name)
		}
		if _, ok := builtinType(name); ok {
			return nil, errors.Wrapf(contract.ErrUnparsableType, "type %q shadows a builtin", name)
		}
		leaf := ir.Named(name, "", nil)
		leaf.Documentation = docFromText(defs[name].Doc)
		named[name] = leaf
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		shape, err := defs[name].shape(named)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", name)
		}
		named[name].Shape = shape
	}
	return named, nil
}

func (d typeDef) shape(named map[string]*ir.LeafDescriptor) (ir.Shape, error) {
	set := 0
	for _, ok := range []bool{d.Fields != nil, d.Enum != nil, d.Union != nil, d.Alias != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Wrap(contract.ErrUnparsableType, "exactly one of fields, enum, union or alias is required")
	}

	switch {
	case d.Fields != nil:
		fields, err := fieldDescriptors(d.Fields, named)
		if err != nil {
			return nil, err
		}
		return &ir.StructShape{Fields: fields}, nil

	case d.Enum != nil:
		shape := &ir.EnumShape{Members: make([]ir.EnumMember, 0, len(d.Enum))}
		for _, v := range d.Enum {
			switch x := v.(type) {
			case string:
				shape.Members = append(shape.Members, ir.EnumMember{Name: x, Value: x})
			case int:
				shape.Members = append(shape.Members, ir.EnumMember{Name: strconv.FormatInt(int64(x), 10), Value: int64(x)})
			case float64:
				shape.Members = append(shape.Members, ir.EnumMember{Name: strconv.FormatFloat(x, 'g', -1, 64), Value: x})
			default:
				return nil, errors.Wrapf(contract.ErrUnparsableType, "enum value %v must be a string or number", v)
			}
		}
		return shape, nil

	case d.Union != nil:
		shape := &ir.UnionShape{Tag: d.Union.Tag}
		if shape.Tag == "" {
			shape.Tag = "type"
		}
		for _, v := range d.Union.Variants {
			fields, err := fieldDescriptors(v.Fields, named)
			if err != nil {
				return nil, errors.Wrapf(err, "variant %s", v.Name)
			}
			shape.Variants = append(shape.Variants, ir.UnionVariant{Name: v.Name, Fields: fields})
		}
		return shape, nil

	default:
		td, err := ParseTypeExpr(d.Alias, named)
		if err != nil {
			return nil, err
		}
		return &ir.AliasShape{Underlying: td}, nil
	}
}

func fieldDescriptors(defs []fieldDef, named map[string]*ir.LeafDescriptor) ([]ir.FieldDescriptor, error) {
	out := make([]ir.FieldDescriptor, 0, len(defs))
	for _, f := range defs {
		td, err := ParseTypeExpr(f.Type, named)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", f.Name)
		}
		if f.Optional {
			td = ir.Optional(td)
		}
		out = append(out, ir.FieldDescriptor{
			Name:          f.Name,
			JSONName:      f.Name,
			Type:          td,
			Documentation: docFromText(f.Doc),
		})
	}
	return out, nil
}

// ParseTypeExpr parses a type expression such as "list<Contact>",
// "map<string, number>", "result<Account[]>" or "string?". named holds the
// user-defined leaves an identifier may refer to.
func ParseTypeExpr(expr string, named map[string]*ir.LeafDescriptor) (ir.TypeDescriptor, error) {
	p := &exprParser{src: expr, named: named}
	td, err := p.parseType()
	if err != nil {
		return nil, errors.Wrapf(err, "type expression %q", expr)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "type expression %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return td, nil
}

type exprParser struct {
	src   string
	pos   int
	named map[string]*ir.LeafDescriptor
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *exprParser) parseType() (ir.TypeDescriptor, error) {
	name := p.ident()
	if name == "" {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "expected a type name at offset %d", p.pos)
	}

	var td ir.TypeDescriptor
	if p.peek() == '<' {
		p.pos++
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if td, err = container(name, args); err != nil {
			return nil, err
		}
	} else {
		var err error
		if td, err = p.lookup(name); err != nil {
			return nil, err
		}
	}

	// Postfix forms bind left to right: "T[]?" is an optional list.
	for {
		switch {
		case strings.HasPrefix(p.src[p.pos:], "[]"):
			p.pos += 2
			td = ir.List(td)
		case p.peek() == '?':
			p.pos++
			td = ir.Optional(td)
		default:
			return td, nil
		}
	}
}

func (p *exprParser) parseArgs() ([]ir.TypeDescriptor, error) {
	var args []ir.TypeDescriptor
	if p.peek() == '>' {
		p.pos++
		return args, nil
	}
	for {
		td, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, td)
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return args, nil
		default:
			return nil, errors.Wrapf(contract.ErrUnparsableType, "expected ',' or '>' at offset %d", p.pos)
		}
	}
}

func (p *exprParser) lookup(name string) (ir.TypeDescriptor, error) {
	if td, ok := builtinType(name); ok {
		return td, nil
	}
	if leaf, ok := p.named[name]; ok {
		return leaf, nil
	}
	return nil, errors.Wrapf(contract.ErrUnparsableType, "unknown type %q", name)
}

func container(name string, args []ir.TypeDescriptor) (ir.TypeDescriptor, error) {
	want := map[string]int{"list": 1, "optional": 1, "result": 1, "map": 2}
	n, ok := want[name]
	if !ok {
		return nil, errors.Wrapf(contract.ErrUnparsableType, "%q is not a container", name)
	}
	if len(args) != n {
		return nil, errors.Wrapf(contract.ErrContainerArity, "%s takes %d type arguments, got %d", name, n, len(args))
	}
	switch name {
	case "list":
		return ir.List(args[0]), nil
	case "optional":
		return ir.Optional(args[0]), nil
	case "result":
		return ir.Fallible(args[0]), nil
	default:
		return ir.Map(args[0], args[1]), nil
	}
}

func builtinType(name string) (ir.TypeDescriptor, bool) {
	switch name {
	case "number", "float64":
		return ir.Float(64), true
	case "float32":
		return ir.Float(32), true
	case "int", "integer":
		return ir.Int(0), true
	case "int8", "int16", "int32", "int64":
		bits, _ := strconv.Atoi(strings.TrimPrefix(name, "int"))
		return ir.Int(bits), true
	case "uint":
		return ir.Uint(0), true
	case "uint8", "uint16", "uint32", "uint64":
		bits, _ := strconv.Atoi(strings.TrimPrefix(name, "uint"))
		return ir.Uint(bits), true
	case "string":
		return ir.String(), true
	case "boolean", "bool":
		return ir.Bool(), true
	case "bytes":
		return ir.Bytes(), true
	case "time":
		return ir.Time(), true
	case "duration":
		return ir.Duration(), true
	case "any":
		return ir.Any(), true
	case "empty":
		return ir.Empty(), true
	case "void":
		return ir.Void(), true
	}
	return nil, false
}

func isTypeName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
