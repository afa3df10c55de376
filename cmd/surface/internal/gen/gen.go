package gen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/broady/surface/cmd/surface/internal/source"
	"github.com/broady/surface/surfacegen"
	"github.com/broady/surface/surfacegen/typescript"
)

type Cmd struct {
	Out        string       `arg:"" help:"Output directory for generated files." type:"path"`
	Source     source.Flags `embed:""`
	File       string       `help:"Client document file name." default:"client.ts"`
	ClassName  string       `help:"Name of the generated class." name:"class-name"`
	Positional bool         `help:"Send stub arguments as a JSON array instead of an object."`
	Case       string       `help:"Stub name case (${enum})." enum:"preserve,camel,pascal,snake" default:"preserve"`
	Camel      bool         `help:"Shorthand for --case=camel."`
	Comments   bool         `help:"Emit JSDoc from Go documentation."`
	Schemas    bool         `help:"Also write schemas.json." short:"s"`

	stdout io.Writer
}

// ClientConfig builds the client document configuration from CLI-level
// switches. An empty methodCase keeps wire names.
func ClientConfig(className string, positional bool, methodCase string, comments bool) typescript.ClientConfig {
	cfg := typescript.ClientConfig{
		ClassName:    className,
		MethodCase:   methodCase,
		EmitComments: comments,
	}
	if positional {
		cfg.ParamEncoding = typescript.PayloadPositional
	}
	return cfg
}

func (c *Cmd) methodCase() string {
	if c.Camel {
		return "camel"
	}
	return c.Case
}

func (c *Cmd) Run(logger *slog.Logger) error {
	raw, err := c.Source.Methods(context.Background(), logger)
	if err != nil {
		return fmt.Errorf("load methods: %w", err)
	}

	outDir, err := filepath.Abs(c.Out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	g := surfacegen.FromMethods(raw).
		WithClientConfig(ClientConfig(c.ClassName, c.Positional, c.methodCase(), c.Comments)).
		OutFile(c.File).
		WithLogger(logger)
	if c.Schemas {
		g = g.WithSchemas()
	}
	result, err := g.ToDir(outDir)
	if err != nil {
		return err
	}

	w := c.stdout
	if w == nil {
		w = os.Stdout
	}
	for _, f := range result.Files {
		fmt.Fprintf(w, "✓ Wrote %s\n", filepath.Join(outDir, f))
	}
	fmt.Fprintf(w, "✓ %d methods, %d types\n", len(result.Contracts), len(result.Definitions))
	return nil
}
