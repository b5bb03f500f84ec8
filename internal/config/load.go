package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	nanocerr "github.com/xavier/nanoc/internal/errors"
)

// DefaultFilename is the configuration file looked up when none is given.
const DefaultFilename = "nanoc.yaml"

// Load reads the configuration file at path and merges it over Default().
// Environment variables referenced as ${VAR} in the file are expanded; a .env
// file next to the working directory is honored first when present.
func Load(path string) (Config, error) {
	// Missing .env is the normal case, not an error.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment variables from .env")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Config{}, nanocerr.ConfigNotFound(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var over Config
	if err := yaml.Unmarshal([]byte(expanded), &over); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return Merge(Default(), over), nil
}

// InitFile writes a starter configuration file. It refuses to overwrite an
// existing file unless force is set.
func InitFile(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	content := `# nanoc site configuration
site_name: "A New nanoc Site"
base_url: ""

output_dir: output
data_source: filesystem
router: default

index_filenames:
  - index.html

source:
  content_dir: content
  layouts_dir: layouts
  lib_dir: lib

cache:
  enabled: true
  path: tmp/build.db

view:
  addr: localhost:3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
