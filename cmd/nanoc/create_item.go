package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/site"
)

// CreateItemCmd implements the 'create-item' command. It renders a template
// from the templates directory into a new content file, so new pages start
// from the site's own boilerplate instead of an empty buffer.
type CreateItemCmd struct {
	Identifier string `arg:"" help:"Identifier of the new item, e.g. /posts/hello/"`
	Template   string `short:"t" help:"Template name from the templates directory" default:"default"`
	Title      string `help:"Title attribute for the new item (defaults to the identifier's last segment)"`
	Ext        string `help:"File extension for the new content file" default:"md"`
}

func (c *CreateItemCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	identifier := content.CleanIdentifier(c.Identifier)

	s, err := site.New(".", cfg)
	if err != nil {
		return err
	}
	if err := s.Boot(context.Background()); err != nil {
		return err
	}

	for _, item := range s.Items() {
		if item.Identifier == identifier {
			return fmt.Errorf("an item with identifier %s already exists", identifier)
		}
	}

	tmpl, ok := s.TemplateNamed(c.Template)
	if !ok {
		return fmt.Errorf("no template named %q in %s", c.Template, s.Config().Source.TemplatesDir)
	}

	title := c.Title
	if title == "" {
		title = titleFromIdentifier(identifier)
	}
	data := map[string]any{
		"title":      title,
		"identifier": identifier,
	}

	body, err := renderTemplate(tmpl, data)
	if err != nil {
		return fmt.Errorf("render template %q: %w", c.Template, err)
	}

	rel := contentPathFor(identifier, c.Ext)
	outPath := filepath.Join(s.Config().Source.ContentDir, rel)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create content directory: %w", err)
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("file already exists: %s", outPath)
		}
		return fmt.Errorf("write content file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write content file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write content file: %w", err)
	}

	fmt.Printf("Created %s (%s)\n", outPath, identifier)
	return nil
}

// renderTemplate runs the template's attribute values and body through
// text/template and reassembles a frontmattered content file.
func renderTemplate(tmpl *content.Template, data map[string]any) ([]byte, error) {
	attrs := make(map[string]any, len(tmpl.Attributes)+1)
	for k, v := range tmpl.Attributes {
		if s, ok := v.(string); ok {
			rendered, err := renderString(k, s, data)
			if err != nil {
				return nil, err
			}
			attrs[k] = rendered
			continue
		}
		attrs[k] = v
	}
	if _, ok := attrs["title"]; !ok {
		attrs["title"] = data["title"]
	}

	body, err := renderString("body", string(tmpl.Content), data)
	if err != nil {
		return nil, err
	}

	front, err := yaml.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func renderString(name, src string, data map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// contentPathFor inverts the identifier mapping of the filesystem source:
// /posts/hello/ with ext md becomes posts/hello.md, the root becomes
// index.md.
func contentPathFor(identifier, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	trimmed := strings.Trim(identifier, "/")
	if trimmed == "" {
		trimmed = "index"
	}
	return filepath.FromSlash(trimmed + "." + ext)
}

func titleFromIdentifier(identifier string) string {
	trimmed := strings.Trim(identifier, "/")
	if trimmed == "" {
		return "Home"
	}
	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")
	if last == "" {
		return "Untitled"
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
