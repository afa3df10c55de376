// Package source selects where the CLI reads method contracts from: a YAML
// contract file, a Go host type analyzed from source, or the built-in demo
// host.
package source

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/broady/surface/internal/accounts"
	"github.com/broady/surface/surfacegen/ir"
	"github.com/broady/surface/surfacegen/provider"
)

// Flags are embedded into each command that reads contracts.
type Flags struct {
	Contract string `help:"YAML contract file to read." short:"c" type:"path" xor:"source"`
	Package  string `help:"Go package holding the host type." short:"p" xor:"source"`
	Type     string `help:"Host type whose methods form the surface (with --package)." short:"t"`
	Dir      string `help:"Directory packages are resolved from." type:"path"`
}

// Methods returns the raw methods selected by the flags. Without --contract
// or --package it reflects over the built-in demo host.
func (f *Flags) Methods(ctx context.Context, logger *slog.Logger) ([]ir.RawMethod, error) {
	switch {
	case f.Contract != "":
		return provider.LoadContractFile(f.Contract)

	case f.Package != "":
		if f.Type == "" {
			return nil, errors.New("--type is required with --package")
		}
		p := &provider.SourceProvider{}
		raw, err := p.MethodDecls(ctx, provider.SourceOptions{
			Dir:      f.Dir,
			Package:  f.Package,
			TypeName: f.Type,
		})
		if err != nil {
			return nil, err
		}
		report(logger, p.Warnings())
		return raw, nil

	default:
		if f.Type != "" {
			return nil, errors.New("--type requires --package")
		}
		p := provider.NewReflectionProvider()
		raw, err := p.RawMethods(accounts.New(accounts.NewMemoryStore()), accounts.Decls())
		if err != nil {
			return nil, err
		}
		report(logger, p.Warnings())
		return raw, nil
	}
}

func report(logger *slog.Logger, warnings []ir.Warning) {
	for _, w := range warnings {
		logger.Warn("provider warning",
			slog.String("code", w.Code),
			slog.String("message", w.Message),
			slog.String("type", w.TypeName))
	}
}
