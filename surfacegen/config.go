package surfacegen

import (
	"context"
	"log/slog"

	"github.com/broady/surface/surfacegen/ir"
	"github.com/broady/surface/surfacegen/provider"
	"github.com/broady/surface/surfacegen/sink"
	"github.com/broady/surface/surfacegen/typescript"
)

// Generator provides a fluent API for code generation.
// Create with FromMethods, FromHost or FromContractFile and configure with
// method chaining.
//
// Example:
//
//	surfacegen.FromHost(accounts, accounts.Decls()).
//	    WithClientConfig(typescript.ClientConfig{MethodCase: "camel"}).
//	    WithSchemas().
//	    ToDir("./client/src/rpc")
type Generator struct {
	raw  []ir.RawMethod
	err  error
	opts Options
}

// FromMethods creates a Generator for raw methods from any provider.
func FromMethods(raw []ir.RawMethod) *Generator {
	return &Generator{raw: raw}
}

// FromHost creates a Generator for a live host using the reflection
// provider. Provider errors are reported by the terminal operation.
func FromHost(host any, decls []provider.MethodDecl) *Generator {
	p := provider.NewReflectionProvider()
	raw, err := p.RawMethods(host, decls)
	g := &Generator{raw: raw, err: err}
	g.opts.Warnings = p.Warnings()
	return g
}

// FromContractFile creates a Generator for a YAML contract file.
func FromContractFile(path string) *Generator {
	raw, err := provider.LoadContractFile(path)
	return &Generator{raw: raw, err: err}
}

// WithClientConfig sets the client document configuration.
func (g *Generator) WithClientConfig(cfg typescript.ClientConfig) *Generator {
	g.opts.Client = cfg
	return g
}

// WithSchemas enables schemas.json output.
func (g *Generator) WithSchemas() *Generator {
	g.opts.Schemas = true
	return g
}

// OutFile sets the client document file name.
func (g *Generator) OutFile(name string) *Generator {
	g.opts.OutFile = name
	return g
}

// WithLogger sets the logger used for warnings.
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.opts.Logger = logger
	return g
}

// ToDir generates files to the specified directory.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(dir string) (*Result, error) {
	return g.ToSink(context.Background(), sink.NewFilesystemSink(dir))
}

// ToSink generates files into s.
func (g *Generator) ToSink(ctx context.Context, s sink.OutputSink) (*Result, error) {
	if g.err != nil {
		return nil, g.err
	}
	opts := g.opts
	opts.Sink = s
	return Generate(ctx, g.raw, opts)
}

// Generate returns generated files in memory without writing to disk.
func (g *Generator) Generate() (*Result, error) {
	return g.ToSink(context.Background(), sink.NewMemorySink())
}
