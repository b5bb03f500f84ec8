package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xavier/nanoc/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing files"`
	Dir   string `short:"d" help:"Directory to create the site in" default:"."`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Println("Creating a new site")

	if err := os.MkdirAll(i.Dir, 0o750); err != nil {
		return fmt.Errorf("create site directory: %w", err)
	}

	cfgPath := filepath.Join(i.Dir, root.Config)
	if err := config.InitFile(cfgPath, i.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", cfgPath)

	for _, f := range starterFiles {
		path := filepath.Join(i.Dir, f.path)
		if _, err := os.Stat(path); err == nil && !i.Force {
			fmt.Printf("Kept existing %s\n", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}

	fmt.Println("Site created. Run 'nanoc compile' to build it.")
	return nil
}

var starterFiles = []struct {
	path string
	body string
}{
	{
		path: "content/index.md",
		body: `---
title: Home
---
# Welcome

This is a brand new site. Edit ` + "`content/index.md`" + ` to change this page.
`,
	},
	{
		path: "content/about.md",
		body: `---
title: About
---
# About

Describe the site here.
`,
	},
	{
		path: "layouts/default.html",
		body: `<!DOCTYPE html>
<html>
  <head>
    <title>{{attr "title"}}</title>
  </head>
  <body>
    {{.Content}}
  </body>
</html>
`,
	},
	{
		path: "rules.yaml",
		body: `# Compilation rules, first match per item wins.
compile:
  - pattern: "/**"
    steps:
      - filter: markdown
      - layout: "/default/"
layouts:
  - pattern: "/**"
    filter: gotemplate
`,
	},
	{
		path: "templates/default.md",
		body: `---
title: "{{.title}}"
---
# {{.title}}
`,
	},
	{
		path: "lib/.keep",
		body: "",
	},
}
