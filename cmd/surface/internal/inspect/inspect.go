package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/broady/surface/cmd/surface/internal/source"
	"github.com/broady/surface/surfacegen/contract"
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

	w := c.stdout
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(contracts)
}
