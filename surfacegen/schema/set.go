package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/broady/surface/surfacegen/ir"
)

// ErrUnknownMethod is returned by Set.Validate for a method without a schema.
var ErrUnknownMethod = errors.New("no schema for method")

// Set holds compiled parameter schemas keyed by method name.
// A Set is read-only after Compile and safe for concurrent use.
type Set struct {
	keyed      map[string]*jsonschema.Schema
	positional map[string]*jsonschema.Schema
	params     map[string]int
}

// Compile builds the keyed and positional parameter schemas of every
// contract.
func Compile(contracts []ir.MethodContract) (*Set, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	s := &Set{
		keyed:      make(map[string]*jsonschema.Schema, len(contracts)),
		positional: make(map[string]*jsonschema.Schema, len(contracts)),
		params:     make(map[string]int, len(contracts)),
	}

	for _, c := range contracts {
		s.params[c.Name] = len(c.Params)
		if len(c.Params) == 0 {
			continue
		}

		keyed, err := compileDoc(compiler, resourceURL(c.Name, "keyed"), ForContract(c))
		if err != nil {
			return nil, errors.Wrapf(err, "method %q", c.Name)
		}
		positional, err := compileDoc(compiler, resourceURL(c.Name, "positional"), ForContractPositional(c))
		if err != nil {
			return nil, errors.Wrapf(err, "method %q", c.Name)
		}
		s.keyed[c.Name] = keyed
		s.positional[c.Name] = positional
	}
	return s, nil
}

func resourceURL(method, form string) string {
	return "surface://params/" + url.PathEscape(method) + "/" + form + ".json"
}

func compileDoc(compiler *jsonschema.Compiler, resource string, doc map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "add schema resource %s", resource)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", resource)
	}
	return compiled, nil
}

// Has reports whether method is known to the set.
func (s *Set) Has(method string) bool {
	_, ok := s.params[method]
	return ok
}

// Validate checks a raw parameter payload. An object is checked against the
// keyed schema and an array against the positional one. Absent and null
// payloads, and any payload of a zero-parameter method, are accepted.
func (s *Set) Validate(method string, payload []byte) error {
	n, ok := s.params[method]
	if !ok {
		return errors.Wrapf(ErrUnknownMethod, "%q", method)
	}
	trimmed := bytes.TrimSpace(payload)
	if n == 0 || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	sch := s.keyed[method]
	if trimmed[0] == '[' {
		sch = s.positional[method]
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return errors.Wrap(err, "invalid JSON")
	}

	if err := sch.Validate(instance); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			return newValidationError(method, valErr)
		}
		return errors.Wrap(err, "schema validation failed")
	}
	return nil
}

// Cause is one leaf failure of a schema validation.
type Cause struct {
	InstanceLocation string `json:"instanceLocation"`
	KeywordLocation  string `json:"keywordLocation"`
	Message          string `json:"error"`
}

// ValidationError reports a payload that does not match its schema.
type ValidationError struct {
	Method string
	Causes []Cause
	err    *jsonschema.ValidationError
}

func newValidationError(method string, valErr *jsonschema.ValidationError) *ValidationError {
	out := &ValidationError{Method: method, err: valErr}
	for _, e := range valErr.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		out.Causes = append(out.Causes, Cause{
			InstanceLocation: e.InstanceLocation,
			KeywordLocation:  e.KeywordLocation,
			Message:          e.Error,
		})
	}
	return out
}

func (e *ValidationError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("params for %q do not match schema: %s", e.Method, e.err.Message)
	}
	c := e.Causes[0]
	loc := c.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("params for %q do not match schema: %s: %s", e.Method, loc, c.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
