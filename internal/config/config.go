// Package config holds the site configuration model.
//
// Defaults are merged with caller-supplied values through the pure Merge
// function; nothing in this package keeps mutable global state.
package config

// Config represents the full site configuration.
type Config struct {
	SiteName string `yaml:"site_name,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`

	// OutputDir is where compiled content is written.
	OutputDir string `yaml:"output_dir"`

	// DataSource and Router are symbolic plugin names resolved through the
	// plugin registry when the site boots.
	DataSource string `yaml:"data_source"`
	Router     string `yaml:"router"`

	// IndexFilenames lists the filenames a directory identifier maps to
	// (first entry wins for routing).
	IndexFilenames []string `yaml:"index_filenames"`

	Source SourceConfig `yaml:"source"`
	Cache  CacheConfig  `yaml:"cache"`
	Watch  WatchConfig  `yaml:"watch"`
	View   ViewConfig   `yaml:"view"`

	// Params carries free-form site parameters exposed to filters and
	// layouts through the assigns environment.
	Params map[string]any `yaml:"params,omitempty"`
}

// SourceConfig configures the data source implementation.
type SourceConfig struct {
	// ContentDir, LayoutsDir, TemplatesDir and LibDir are relative to the
	// site root for the filesystem source, or to the repository root for the
	// git source.
	ContentDir   string `yaml:"content_dir"`
	LayoutsDir   string `yaml:"layouts_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	LibDir       string `yaml:"lib_dir"`

	// URL and Branch are used by the git data source only. Token, when set,
	// authenticates HTTPS clones.
	URL    string `yaml:"url,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// CacheConfig configures the build cache used to detect unchanged output.
type CacheConfig struct {
	// Enabled is a pointer so an explicit `enabled: false` can override the
	// default; nil means "not specified".
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether the cache is on, treating nil as the default true.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Schedule is an optional interval (Go duration string) for periodic full
	// rebuilds in addition to filesystem-event-driven ones. Empty disables it.
	Schedule string `yaml:"schedule,omitempty"`
}

// ViewConfig configures the local preview server.
type ViewConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		SiteName:       "A New nanoc Site",
		OutputDir:      "output",
		DataSource:     "filesystem",
		Router:         "default",
		IndexFilenames: []string{"index.html"},
		Source: SourceConfig{
			ContentDir:   "content",
			LayoutsDir:   "layouts",
			TemplatesDir: "templates",
			LibDir:       "lib",
		},
		Cache: CacheConfig{
			Path: "tmp/build.db",
		},
		View: ViewConfig{
			Addr: "localhost:3000",
		},
	}
}

// Merge overlays over on top of base and returns the result. Scalar fields of
// over win when set; list fields replace wholesale when non-empty; Params keys
// are merged with over winning per key. Neither argument is mutated.
func Merge(base, over Config) Config {
	out := base

	if over.SiteName != "" {
		out.SiteName = over.SiteName
	}
	if over.BaseURL != "" {
		out.BaseURL = over.BaseURL
	}
	if over.OutputDir != "" {
		out.OutputDir = over.OutputDir
	}
	if over.DataSource != "" {
		out.DataSource = over.DataSource
	}
	if over.Router != "" {
		out.Router = over.Router
	}
	if len(over.IndexFilenames) > 0 {
		out.IndexFilenames = append([]string(nil), over.IndexFilenames...)
	}

	if over.Source.ContentDir != "" {
		out.Source.ContentDir = over.Source.ContentDir
	}
	if over.Source.LayoutsDir != "" {
		out.Source.LayoutsDir = over.Source.LayoutsDir
	}
	if over.Source.TemplatesDir != "" {
		out.Source.TemplatesDir = over.Source.TemplatesDir
	}
	if over.Source.LibDir != "" {
		out.Source.LibDir = over.Source.LibDir
	}
	if over.Source.URL != "" {
		out.Source.URL = over.Source.URL
	}
	if over.Source.Branch != "" {
		out.Source.Branch = over.Source.Branch
	}
	if over.Source.Token != "" {
		out.Source.Token = over.Source.Token
	}

	if over.Cache.Path != "" {
		out.Cache.Path = over.Cache.Path
	}
	if over.Cache.Enabled != nil {
		out.Cache.Enabled = over.Cache.Enabled
	}
	if over.Watch.Schedule != "" {
		out.Watch.Schedule = over.Watch.Schedule
	}
	if over.View.Addr != "" {
		out.View.Addr = over.View.Addr
	}
	out.View.Metrics = base.View.Metrics || over.View.Metrics

	if len(over.Params) > 0 {
		merged := make(map[string]any, len(base.Params)+len(over.Params))
		for k, v := range base.Params {
			merged[k] = v
		}
		for k, v := range over.Params {
			merged[k] = v
		}
		out.Params = merged
	}

	return out
}
