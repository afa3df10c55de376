// Package surfacegen compiles a host's method declarations into a
// TypeScript client document.
//
// The pipeline is: a provider produces raw methods, contract.Extract
// normalizes them, and the typescript client emitter renders the document,
// which is written to an output sink. Any error aborts the run before
// anything is written.
package surfacegen

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/ir"
	"github.com/broady/surface/surfacegen/schema"
	"github.com/broady/surface/surfacegen/sink"
	"github.com/broady/surface/surfacegen/typescript"
)

// Default output file names.
const (
	DefaultOutFile    = "client.ts"
	DefaultSchemaFile = "schemas.json"
)

// Options configures a generation run.
type Options struct {
	// Sink receives the output files. Nil means an in-memory sink, whose
	// content is only available through Result.
	Sink sink.OutputSink

	// OutFile is the client document path within the sink.
	// Default: "client.ts".
	OutFile string

	// Client configures the emitted document.
	Client typescript.ClientConfig

	// Schemas additionally writes one JSON Schema per method to SchemaFile.
	Schemas bool

	// SchemaFile is the schema document path. Default: "schemas.json".
	SchemaFile string

	// Logger receives provider warnings. Nil means slog.Default().
	Logger *slog.Logger

	// Warnings are non-fatal provider warnings to report.
	Warnings []ir.Warning
}

// Result describes a completed run.
type Result struct {
	// Contracts are the extracted method contracts in declaration order.
	Contracts []ir.MethodContract

	// Document is the emitted client document.
	Document *typescript.Document

	// Definitions are the named type definitions in emission order.
	Definitions []string

	// Files are the paths written to the sink.
	Files []string
}

// Generate extracts contracts from raw, emits the client document and
// writes it to opts.Sink. Nothing is written if any step fails.
func Generate(ctx context.Context, raw []ir.RawMethod, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	contracts, err := contract.Extract(raw)
	if err != nil {
		return nil, errors.Wrap(err, "extract contracts")
	}

	emitter, err := typescript.NewClientEmitter(opts.Client)
	if err != nil {
		return nil, err
	}
	doc, err := emitter.Build(contracts)
	if err != nil {
		return nil, errors.Wrap(err, "emit client")
	}

	files := []outputFile{{opts.OutFile, doc.Text}}

	if opts.Schemas {
		data, err := schemaDocument(contracts)
		if err != nil {
			return nil, err
		}
		files = append(files, outputFile{opts.SchemaFile, data})
	}

	for _, w := range opts.Warnings {
		opts.Logger.Warn("generator warning",
			slog.String("code", w.Code),
			slog.String("message", w.Message),
			slog.String("type", w.TypeName))
	}

	result := &Result{
		Contracts:   contracts,
		Document:    doc,
		Definitions: doc.Definitions,
	}
	for _, f := range files {
		if err := opts.Sink.WriteFile(ctx, f.path, f.content); err != nil {
			return nil, errors.Wrapf(err, "write %s", f.path)
		}
		result.Files = append(result.Files, f.path)
	}

	opts.Logger.Debug("generated client",
		slog.Int("methods", len(contracts)),
		slog.Int("definitions", len(doc.Definitions)),
		slog.String("file", opts.OutFile))
	return result, nil
}

type outputFile struct {
	path    string
	content []byte
}

func (o Options) withDefaults() Options {
	if o.Sink == nil {
		o.Sink = sink.NewMemorySink()
	}
	if o.OutFile == "" {
		o.OutFile = DefaultOutFile
	}
	if o.SchemaFile == "" {
		o.SchemaFile = DefaultSchemaFile
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// schemaDocument maps each method name to its keyed parameter schema.
func schemaDocument(contracts []ir.MethodContract) ([]byte, error) {
	doc := make(map[string]any, len(contracts))
	for _, c := range contracts {
		doc[c.Name] = schema.ForContract(c)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal schemas")
	}
	return append(data, '\n'), nil
}
