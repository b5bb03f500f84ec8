// Package router maps item representations to output paths. The site
// aggregate owns a single router, resolved by symbolic name from the plugin
// registry; rules may override individual representations before the router
// is consulted.
package router

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/plugin"
)

// DefaultRep is the name of the implicit representation every item has.
const DefaultRep = "default"

// Router resolves an item representation to the output path its compiled
// content is written to, relative to the output directory. An empty path
// means the representation is not written.
type Router interface {
	Name() string
	RoutePath(item *content.Item, repName string) (string, error)
}

// Factory builds a router from the merged site configuration. Factories are
// registered in the plugin registry under KindRouter.
type Factory func(cfg *config.Config) (Router, error)

// Default routes textual items to directory-style paths capped with the
// first configured index filename; items carrying an "extension" attribute
// (set by data sources for binary content, or by authors) get file-style
// paths instead. The item attributes "custom_path" and "skip_output" win
// over both. Identifier segments are slugged on the way out.
type Default struct {
	indexFilename string
}

// NewDefault builds the default router.
func NewDefault(cfg *config.Config) (Router, error) {
	idx := "index.html"
	if len(cfg.IndexFilenames) > 0 {
		idx = cfg.IndexFilenames[0]
	}
	return &Default{indexFilename: idx}, nil
}

func (r *Default) Name() string { return "default" }

func (r *Default) RoutePath(item *content.Item, repName string) (string, error) {
	if skip, ok := item.Attr("skip_output"); ok {
		if b, ok := skip.(bool); ok && b {
			return "", nil
		}
	}
	if custom := item.StringAttr("custom_path", ""); custom != "" {
		return WithRepSuffix(custom, repName), nil
	}

	ext := strings.TrimPrefix(item.StringAttr("extension", ""), ".")
	switch {
	case ext != "":
		return WithRepSuffix(FileStyle(item.Identifier, ext), repName), nil
	case item.Binary:
		return "", fmt.Errorf("binary item %s has no extension attribute to route with", item.Identifier)
	default:
		return WithRepSuffix(Slug(item.Identifier)+r.indexFilename, repName), nil
	}
}

// Identity emits the cleaned identifier verbatim. Useful for reps whose
// rules route file-shaped identifiers themselves.
type Identity struct{}

// NewIdentity builds the identity router.
func NewIdentity(cfg *config.Config) (Router, error) { return Identity{}, nil }

func (Identity) Name() string { return "identity" }

func (Identity) RoutePath(item *content.Item, repName string) (string, error) {
	return content.CleanIdentifier(item.Identifier), nil
}

// FileStyle turns a directory identifier into a file path with the given
// extension: "/feed/" + "xml" -> "/feed.xml". The root identifier maps to
// "/index.<ext>". Segments are slugged.
func FileStyle(identifier, ext string) string {
	trimmed := strings.TrimSuffix(Slug(identifier), "/")
	if trimmed == "" {
		return "/index." + ext
	}
	return trimmed + "." + ext
}

// WithRepSuffix inserts "-<rep>" before the final extension for secondary
// representations: "/foo/index.html" + "raw" -> "/foo/index-raw.html". The
// default representation and empty paths pass through unchanged.
func WithRepSuffix(p, repName string) string {
	if p == "" || repName == "" || repName == DefaultRep {
		return p
	}
	slash := strings.LastIndex(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot > slash {
		return p[:dot] + "-" + repName + p[dot:]
	}
	return p + "-" + repName
}

// deaccent strips combining marks after canonical decomposition.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug normalizes each identifier segment for use in an output path:
// diacritics stripped, lowercased, whitespace collapsed to hyphens, anything
// outside [a-z0-9._-] dropped. A segment that would vanish entirely is kept
// as-is rather than producing an empty path component.
func Slug(identifier string) string {
	cleaned := content.CleanIdentifier(identifier)
	if cleaned == content.RootIdentifier {
		return cleaned
	}
	segments := strings.Split(strings.Trim(cleaned, "/"), "/")
	for i, seg := range segments {
		segments[i] = slugSegment(seg)
	}
	return "/" + strings.Join(segments, "/") + "/"
}

func slugSegment(seg string) string {
	s := seg
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	hyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			hyphen = false
		case unicode.IsSpace(r):
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return seg
	}
	return out
}

func init() {
	plugin.Register(plugin.KindRouter, "default", Factory(NewDefault))
	plugin.Register(plugin.KindRouter, "identity", Factory(NewIdentity))
}
