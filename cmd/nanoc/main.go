// Command nanoc compiles a content tree into a static site.
//
// The heavy lifting lives under internal/; this package only parses flags,
// loads configuration, and wires the site, compiler, writer, and checkers
// together per subcommand.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/xavier/nanoc/internal/config"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	_ "github.com/xavier/nanoc/internal/filters" // register built-in filters
	"github.com/xavier/nanoc/internal/version"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"nanoc.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile    CompileCmd    `cmd:"" help:"Compile the site into the output directory"`
	Init       InitCmd       `cmd:"" help:"Create a new site skeleton in the current directory"`
	View       ViewCmd       `cmd:"" help:"Serve the compiled site over HTTP"`
	Watch      WatchCmd      `cmd:"" help:"Recompile whenever source files change"`
	Check      CheckCmd      `cmd:"" help:"Verify the compiled site (links, stale files)"`
	CreateItem CreateItemCmd `cmd:"" name:"create-item" help:"Create a content file from a template"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the configuration for subcommands that need a site.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.Config)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("nanoc"),
		kong.Description("A static site compiler."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := ctx.Run(&Global{Logger: slog.Default()}, &cli)
	if err != nil {
		adapter := nanocerr.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.HandleError(err)
	}
}
