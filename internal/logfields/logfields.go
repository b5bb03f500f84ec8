package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyItem       = "item"
	KeyRep        = "rep"
	KeyFilter     = "filter"
	KeyLayout     = "layout"
	KeySnapshot   = "snapshot"
	KeyDataSource = "data_source"
	KeyRouter     = "router"
	KeySnippet    = "snippet"
	KeyPath       = "path"
	KeyOutputPath = "output_path"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Item(identifier string) slog.Attr { return slog.String(KeyItem, identifier) }
func Rep(name string) slog.Attr        { return slog.String(KeyRep, name) }
func Filter(name string) slog.Attr     { return slog.String(KeyFilter, name) }
func Layout(identifier string) slog.Attr { return slog.String(KeyLayout, identifier) }
func Snapshot(name string) slog.Attr   { return slog.String(KeySnapshot, name) }
func DataSource(name string) slog.Attr { return slog.String(KeyDataSource, name) }
func Router(name string) slog.Attr     { return slog.String(KeyRouter, name) }
func Snippet(filename string) slog.Attr { return slog.String(KeySnippet, filename) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func OutputPath(p string) slog.Attr    { return slog.String(KeyOutputPath, p) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
