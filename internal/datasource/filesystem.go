package datasource

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/frontmatter"
	"github.com/xavier/nanoc/internal/logfields"
)

// DefaultsFilename is the site-root file holding global default attributes.
const DefaultsFilename = "defaults.yaml"

// textExtensions lists the extensions treated as textual content; anything
// else loads as binary and never passes through textual filters.
var textExtensions = map[string]struct{}{
	".atom": {}, ".css": {}, ".csv": {}, ".htm": {}, ".html": {},
	".js": {}, ".json": {}, ".markdown": {}, ".md": {}, ".mdown": {},
	".rss": {}, ".svg": {}, ".toml": {}, ".tmpl": {}, ".tpl": {},
	".txt": {}, ".xhtml": {}, ".xml": {}, ".yaml": {}, ".yml": {},
}

// Filesystem reads items, layouts, defaults, templates and code snippets
// from a site directory tree. Item metadata comes in two styles: a sibling
// .yaml meta file (which wins, and disables inline parsing), or an inline
// `---` block at the top of textual content.
type Filesystem struct {
	root         string
	contentDir   string
	layoutsDir   string
	templatesDir string
	libDir       string
	defaultsFile string
}

// NewFilesystem builds a filesystem source rooted at root, with directory
// names taken from the merged site configuration.
func NewFilesystem(root string, cfg *config.Config) *Filesystem {
	return &Filesystem{
		root:         root,
		contentDir:   filepath.Join(root, cfg.Source.ContentDir),
		layoutsDir:   filepath.Join(root, cfg.Source.LayoutsDir),
		templatesDir: filepath.Join(root, cfg.Source.TemplatesDir),
		libDir:       filepath.Join(root, cfg.Source.LibDir),
		defaultsFile: filepath.Join(root, DefaultsFilename),
	}
}

func (f *Filesystem) Name() string { return "filesystem" }

// Up verifies the content directory exists. Layout and lib directories are
// optional; their absence yields empty collections.
func (f *Filesystem) Up(ctx context.Context) error {
	info, err := os.Stat(f.contentDir)
	if err != nil {
		return fmt.Errorf("content directory %s: %w", f.contentDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path %s is not a directory", f.contentDir)
	}
	return nil
}

func (f *Filesystem) Down() error { return nil }

func (f *Filesystem) Loading(ctx context.Context, fn func() error) error {
	return bracket(ctx, f, fn)
}

func (f *Filesystem) Items(ctx context.Context) ([]ItemRecord, error) {
	paths, all, err := collectFiles(f.contentDir)
	if err != nil {
		return nil, err
	}

	seen := map[string]string{}
	records := make([]ItemRecord, 0, len(paths))
	for _, path := range paths {
		if isConsumedMeta(path, all) {
			continue
		}
		item, err := f.readItem(path, all)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[item.Identifier]; dup {
			return nil, fmt.Errorf("items %s and %s map to the same identifier %s", prev, path, item.Identifier)
		}
		seen[item.Identifier] = path
		records = append(records, ItemRecord{Item: item})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Item.Identifier < records[j].Item.Identifier
	})
	slog.Debug("items loaded", logfields.DataSource(f.Name()), logfields.Count(len(records)))
	return records, nil
}

func (f *Filesystem) Defaults(ctx context.Context) (*content.Defaults, error) {
	raw, err := os.ReadFile(f.defaultsFile)
	if os.IsNotExist(err) {
		return &content.Defaults{Attributes: map[string]any{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var attrs map[string]any
	if err := yaml.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.defaultsFile, err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	info, err := os.Stat(f.defaultsFile)
	if err != nil {
		return nil, err
	}
	return &content.Defaults{Attributes: attrs, Mtime: info.ModTime()}, nil
}

func (f *Filesystem) Layouts(ctx context.Context) ([]LayoutRecord, error) {
	paths, all, err := collectFiles(f.layoutsDir)
	if err != nil {
		return nil, err
	}

	records := make([]LayoutRecord, 0, len(paths))
	for _, path := range paths {
		if isConsumedMeta(path, all) {
			continue
		}
		layout, err := f.readLayout(path, all)
		if err != nil {
			return nil, err
		}
		records = append(records, LayoutRecord{Layout: layout})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Layout.Identifier < records[j].Layout.Identifier
	})
	return records, nil
}

// Templates reads item scaffolding from the templates directory: one file
// per template, named after the file sans extension, frontmatter supplying
// the starting attributes.
func (f *Filesystem) Templates(ctx context.Context) ([]TemplateRecord, error) {
	entries, err := os.ReadDir(f.templatesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []TemplateRecord
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(f.templatesDir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		attrs, body, _, err := frontmatter.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing frontmatter of %s: %w", path, err)
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		records = append(records, TemplateRecord{Template: &content.Template{
			Name:       name,
			Content:    body,
			Attributes: attrs,
			Mtime:      info.ModTime(),
		}})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Template.Name < records[j].Template.Name
	})
	return records, nil
}

func (f *Filesystem) CodeSnippets(ctx context.Context) ([]CodeRecord, error) {
	if _, err := os.Stat(f.libDir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(f.libDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != f.libDir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") || strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", f.libDir, err)
	}
	sort.Strings(paths)

	records := make([]CodeRecord, 0, len(paths))
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			rel = path
		}
		records = append(records, CodeRecord{Snippet: &content.CodeSnippet{
			Filename: filepath.ToSlash(rel),
			Source:   source,
			Mtime:    info.ModTime(),
		}})
	}
	slog.Debug("code snippets loaded", logfields.DataSource(f.Name()), logfields.Count(len(records)))
	return records, nil
}

func (f *Filesystem) readItem(path string, all map[string]struct{}) (*content.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(f.contentDir, path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	_, text := textExtensions[ext]

	attrs := map[string]any{}
	body := raw
	if meta, ok := metaCompanion(path, all); ok {
		attrs, err = readMetaFile(meta)
		if err != nil {
			return nil, err
		}
	} else if text && !isYAMLExt(ext) {
		// YAML items skip inline parsing: a leading "---" there is the
		// document marker, not a metadata block.
		attrs, body, _, err = frontmatter.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing frontmatter of %s: %w", path, err)
		}
	}

	if !text {
		// Binary items keep their source extension so routers can place
		// them without sniffing content.
		if _, ok := attrs["extension"]; !ok {
			attrs["extension"] = strings.TrimPrefix(ext, ".")
		}
	}

	return &content.Item{
		Identifier: content.IdentifierFromPath(filepath.ToSlash(rel)),
		RawContent: body,
		Attributes: attrs,
		Binary:     !text,
		Mtime:      info.ModTime(),
	}, nil
}

func (f *Filesystem) readLayout(path string, all map[string]struct{}) (*content.Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(f.layoutsDir, path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	_, text := textExtensions[ext]

	attrs := map[string]any{}
	body := raw
	if meta, ok := metaCompanion(path, all); ok {
		attrs, err = readMetaFile(meta)
		if err != nil {
			return nil, err
		}
	} else if text && !isYAMLExt(ext) {
		attrs, body, _, err = frontmatter.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing frontmatter of %s: %w", path, err)
		}
	}

	return &content.Layout{
		Identifier: content.IdentifierFromPath(filepath.ToSlash(rel)),
		RawContent: body,
		Attributes: attrs,
		Mtime:      info.ModTime(),
	}, nil
}

// collectFiles walks dir and returns its non-hidden files, sorted, plus a
// set for sibling lookups. A missing dir yields empty results.
func collectFiles(dir string) ([]string, map[string]struct{}, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil, nil
	}

	all := map[string]struct{}{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
			return nil
		}
		all[path] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	paths := make([]string, 0, len(all))
	for p := range all {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, all, nil
}

// metaCompanion returns the sibling .yaml/.yml path carrying path's
// attributes, if one was collected.
func metaCompanion(path string, all map[string]struct{}) (string, bool) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".yaml", ".yml"} {
		cand := base + ext
		if cand == path {
			continue
		}
		if _, ok := all[cand]; ok {
			return cand, true
		}
	}
	return "", false
}

// isConsumedMeta reports whether a .yaml/.yml file serves as metadata for a
// sibling content file (and so is not an item itself).
func isConsumedMeta(path string, all map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !isYAMLExt(ext) {
		return false
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for other := range all {
		if other == path {
			continue
		}
		if strings.TrimSuffix(other, filepath.Ext(other)) == base {
			return true
		}
	}
	return false
}

func isYAMLExt(ext string) bool { return ext == ".yaml" || ext == ".yml" }

func readMetaFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attrs map[string]any
	if err := yaml.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, nil
}
