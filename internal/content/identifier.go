package content

import (
	"path"
	"strings"
)

// RootIdentifier is the identifier of the site root.
const RootIdentifier = "/"

// CleanIdentifier normalizes an identifier so that it starts and ends with a
// single slash and contains no repeated slashes. The root stays "/".
func CleanIdentifier(identifier string) string {
	trimmed := strings.Trim(identifier, "/")
	if trimmed == "" {
		return RootIdentifier
	}
	parts := strings.Split(trimmed, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/") + "/"
}

// ParentIdentifier returns the identifier obtained by stripping the last path
// segment, and false for the root identifier (which has no parent).
func ParentIdentifier(identifier string) (string, bool) {
	cleaned := CleanIdentifier(identifier)
	if cleaned == RootIdentifier {
		return "", false
	}
	trimmed := strings.TrimSuffix(cleaned, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return RootIdentifier, true
	}
	return trimmed[:idx+1], true
}

// IdentifierFromPath derives an identifier from a source file path relative
// to the content root: directory components are kept, the filename loses its
// extension, and "index" filenames collapse into their directory.
//
//	foo/bar.md    -> /foo/bar/
//	foo/index.md  -> /foo/
//	index.md      -> /
func IdentifierFromPath(relPath string) string {
	relPath = strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")
	dir, file := path.Split(relPath)

	base := file
	if ext := path.Ext(file); ext != "" {
		base = strings.TrimSuffix(file, ext)
	}

	if base == "index" || base == "" {
		return CleanIdentifier(dir)
	}
	return CleanIdentifier(dir + base)
}
