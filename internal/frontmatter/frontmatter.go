// Package frontmatter parses and renders inline YAML metadata blocks
// (`---` delimited) at the top of content files.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a frontmatter
// delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("frontmatter opening delimiter found but closing delimiter is missing")

// Parse extracts inline YAML frontmatter from a source document. It returns
// the parsed attributes (an empty map when the document has none), the body
// following the block, and whether a block was present. Both \n and \r\n
// delimited documents are accepted; the body keeps its original bytes.
func Parse(src []byte) (map[string]any, []byte, bool, error) {
	meta, body, had, err := split(src)
	if err != nil {
		return nil, nil, false, err
	}
	if !had {
		return map[string]any{}, body, false, nil
	}
	attrs, err := unmarshalAttrs(meta)
	if err != nil {
		return nil, nil, true, err
	}
	return attrs, body, true, nil
}

func split(src []byte) (meta, body []byte, had bool, err error) {
	nl := detectNewline(src)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(src, open) {
		return nil, src, false, nil
	}

	rest := src[len(open):]
	if bytes.HasPrefix(rest, open) {
		// Empty block: "---\n---\n<body>".
		return []byte{}, rest[len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
}

func unmarshalAttrs(meta []byte) (map[string]any, error) {
	if len(meta) == 0 {
		return map[string]any{}, nil
	}
	var attrs map[string]any
	if err := yaml.Unmarshal(meta, &attrs); err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, nil
}

func detectNewline(src []byte) string {
	for i := 0; i+1 < len(src); i++ {
		if src[i] == '\r' && src[i+1] == '\n' {
			return "\r\n"
		}
		if src[i] == '\n' {
			break
		}
	}
	return "\n"
}
