package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/broady/surface/cmd/surface/internal/check"
	"github.com/broady/surface/cmd/surface/internal/gen"
	"github.com/broady/surface/cmd/surface/internal/inspect"
	"github.com/broady/surface/cmd/surface/internal/serve"
)

type CLI struct {
	Verbose bool `help:"Log debug output." short:"v"`

	Version VersionCmd  `cmd:"" help:"Print version information."`
	Gen     gen.Cmd     `cmd:"" help:"Generate the TypeScript client document."`
	Check   check.Cmd   `cmd:"" help:"Validate method contracts without generating files."`
	Inspect inspect.Cmd `cmd:"" help:"Print method contracts as JSON."`
	Serve   serve.Cmd   `cmd:"" help:"Serve the demo host over HTTP and JSON-RPC."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	cli.Serve.Version = Version()
	ctx := kong.Parse(cli,
		kong.Name("surface"),
		kong.Description("Surface compiler: method contracts to typed clients and dispatch tables."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
