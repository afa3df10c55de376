// Package typescript resolves surface descriptors to TypeScript and emits
// the client document: named type definitions followed by a class with one
// async stub per method.
package typescript

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/broady/surface/surfacegen/ir"
)

// DefaultPreamble is the header line of every generated client document.
const DefaultPreamble = "// THIS FILE WAS AUTOGENERATED DO NOT EDIT MANUALLY!, unless you know what you are doing..."

// DefaultClassName is the name of the generated client class.
const DefaultClassName = "RawApi"

// PayloadStyle selects how stub arguments are sent to the transport.
type PayloadStyle string

const (
	// PayloadKeyed sends an object literal: {a, b}.
	PayloadKeyed PayloadStyle = "keyed"

	// PayloadPositional sends an array literal: [a, b].
	PayloadPositional PayloadStyle = "positional"
)

// ClientConfig configures the client document.
type ClientConfig struct {
	// ClassName is the exported class holding the stubs. Default "RawApi".
	ClassName string

	// Preamble is the first line of the document. Default DefaultPreamble.
	Preamble string

	// MethodCase is "preserve" (default), "camel", "pascal" or "snake".
	MethodCase string

	// ParamEncoding selects the payload literal. Default PayloadKeyed.
	ParamEncoding PayloadStyle

	// EmitComments writes JSDoc from Go documentation.
	EmitComments bool
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.ClassName == "" {
		c.ClassName = DefaultClassName
	}
	if c.Preamble == "" {
		c.Preamble = DefaultPreamble
	}
	if c.MethodCase == "" {
		c.MethodCase = "preserve"
	}
	if c.ParamEncoding == "" {
		c.ParamEncoding = PayloadKeyed
	}
	return c
}

func (c ClientConfig) validate() error {
	switch c.MethodCase {
	case "preserve", "camel", "pascal", "snake":
	default:
		return errors.Newf("invalid method case %q: must be preserve, camel, pascal or snake", c.MethodCase)
	}
	switch c.ParamEncoding {
	case PayloadKeyed, PayloadPositional:
	default:
		return errors.Newf("invalid param encoding %q: must be keyed or positional", c.ParamEncoding)
	}
	if sanitizeIdentifier(c.ClassName) != c.ClassName {
		return errors.Newf("invalid class name %q", c.ClassName)
	}
	if strings.Contains(c.Preamble, "\n") {
		return errors.New("preamble must be a single line")
	}
	return nil
}

// ClientEmitter builds client documents.
type ClientEmitter struct {
	config ClientConfig
}

// NewClientEmitter returns an emitter for cfg. Zero fields take defaults.
func NewClientEmitter(cfg ClientConfig) (*ClientEmitter, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &ClientEmitter{config: cfg}, nil
}

// Document is the result of one emission.
type Document struct {
	// Text is the complete client document.
	Text []byte

	// Definitions are the named type definitions in emission order.
	Definitions []string

	// Signatures are the canonical signatures of the definitions.
	Signatures []string
}

// Emit returns the client document for contracts.
func (e *ClientEmitter) Emit(contracts []ir.MethodContract) ([]byte, error) {
	doc, err := e.Build(contracts)
	if err != nil {
		return nil, err
	}
	return doc.Text, nil
}

type stub struct {
	name    string
	wire    string
	args    string
	payload string
	ret     string
	doc     ir.Documentation
}

// Build resolves every contract with a fresh registry and assembles the
// document: preamble, definitions, class opening, stubs, closing brace.
func (e *ClientEmitter) Build(contracts []ir.MethodContract) (*Document, error) {
	reg := NewRegistry()
	res := NewResolver(reg)
	res.comments = e.config.EmitComments

	stubs := make([]stub, 0, len(contracts))
	seen := make(map[string]string, len(contracts))

	for _, c := range contracts {
		s, err := e.buildStub(res, c)
		if err != nil {
			return nil, errors.Wrapf(err, "method %q", c.Name)
		}
		if prev, ok := seen[s.name]; ok {
			return nil, errors.Newf("methods %q and %q both produce stub %q", prev, c.Name, s.name)
		}
		seen[s.name] = c.Name
		stubs = append(stubs, s)
	}

	defs := reg.Definitions()

	var buf strings.Builder
	buf.WriteString(e.config.Preamble)
	buf.WriteString("\n")
	for _, d := range defs {
		buf.WriteString(d)
	}

	buf.WriteString("export class ")
	buf.WriteString(e.config.ClassName)
	buf.WriteString(" {\n")
	buf.WriteString("\t/**\n")
	buf.WriteString("\t * @param json_transport function that executes a jsonrpc call and throws an error if one occured\n")
	buf.WriteString("\t */\n")
	buf.WriteString("\tconstructor (private json_transport: (method: string, params?: any) => Promise<any>) {}\n")

	for _, s := range stubs {
		if e.config.EmitComments {
			writeJSDoc(&buf, "\t", s.doc)
		}
		fmt.Fprintf(&buf, "\tpublic async %s(%s):Promise<%s>{\n", s.name, s.args, s.ret)
		fmt.Fprintf(&buf, "\t\treturn await this.json_transport(%q, %s);\n", s.wire, s.payload)
		buf.WriteString("\t}\n")
	}
	buf.WriteString("}\n")

	return &Document{
		Text:        []byte(buf.String()),
		Definitions: defs,
		Signatures:  reg.Signatures(),
	}, nil
}

func (e *ClientEmitter) buildStub(res *Resolver, c ir.MethodContract) (stub, error) {
	s := stub{
		name:    stubName(c.Name, e.config.MethodCase),
		wire:    c.Name,
		payload: "undefined",
		doc:     c.Documentation,
	}

	args := make([]string, 0, len(c.Params))
	values := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		typ, err := res.Custom(p.Type)
		if err != nil {
			return stub{}, errors.Wrapf(err, "parameter %q", p.Name)
		}
		ident := sanitizeIdentifier(p.Name)
		args = append(args, ident+": "+typ)

		switch {
		case e.config.ParamEncoding == PayloadPositional:
			values = append(values, ident)
		case ident == p.Name:
			values = append(values, ident)
		default:
			values = append(values, propertyName(p.Name)+": "+ident)
		}
	}
	s.args = strings.Join(args, ", ")

	if len(values) > 0 {
		if e.config.ParamEncoding == PayloadPositional {
			s.payload = "[" + strings.Join(values, ", ") + "]"
		} else {
			s.payload = "{" + strings.Join(values, ", ") + "}"
		}
	}

	ret, err := res.Custom(c.Return)
	if err != nil {
		return stub{}, errors.Wrap(err, "return type")
	}
	s.ret = ret

	return s, nil
}

func stubName(name, style string) string {
	return sanitizeIdentifier(applyCaseTransform(name, style))
}
