package check

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/broady/surface/cmd/surface/internal/source"
	"github.com/broady/surface/surfacegen/contract"
	"github.com/broady/surface/surfacegen/typescript"
)

type Cmd struct {
	Source source.Flags `embed:""`

	stdout io.Writer
}

func (c *Cmd) Run(logger *slog.Logger) error {
	raw, err := c.Source.Methods(context.Background(), logger)
	if err != nil {
		return fmt.Errorf("load methods: %w", err)
	}

	contracts, err := contract.Extract(raw)
	if err != nil {
		return err
	}

	emitter, err := typescript.NewClientEmitter(typescript.ClientConfig{})
	if err != nil {
		return err
	}
	doc, err := emitter.Build(contracts)
	if err != nil {
		return err
	}

	w := c.stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "✓ %d methods, %d types\n", len(contracts), len(doc.Definitions))
	fmt.Fprintln(w, "✓ All types resolvable")
	return nil
}
