package main

import (
	"context"
	"fmt"

	"github.com/xavier/nanoc/internal/check"
	"github.com/xavier/nanoc/internal/write"
)

// CheckCmd implements the 'check' command. The site is compiled first so
// the checks always run against current output, then each named checker
// inspects the output tree.
type CheckCmd struct {
	Checks []string `arg:"" optional:"" help:"Checks to run: internal_links, external_links, stale (default: internal_links, stale)"`
	Rules  string   `short:"r" help:"Rules file path" default:"rules.yaml"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()

	fmt.Println("Compiling site")
	out, err := runBuild(ctx, root, buildOptions{rulesPath: c.Rules})
	if err != nil {
		return err
	}

	names := c.Checks
	if len(names) == 0 {
		names = []string{"internal_links", "stale"}
	}
	checkers, err := check.ByName(names...)
	if err != nil {
		return err
	}

	cfg := out.Site.Config()
	target := check.NewTarget(cfg.OutputDir, cfg.BaseURL)
	if len(cfg.IndexFilenames) > 0 {
		target.IndexFilenames = cfg.IndexFilenames
	}
	for _, res := range out.Results {
		if res.Status == write.StatusSkipped {
			continue
		}
		if path, routed := res.Rep.Path(); routed {
			target.MarkWritten(path)
		}
	}

	fmt.Printf("Running checks: %v\n", names)
	issues, err := check.Run(ctx, target, checkers...)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Println("All checks passed")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("  [%s] %s: %s (%s)\n", issue.Checker, issue.Path, issue.Message, issue.Subject)
	}
	return fmt.Errorf("%d issue(s) found", len(issues))
}
