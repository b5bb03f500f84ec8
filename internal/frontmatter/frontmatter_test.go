package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	attrs, body, had, err := Parse(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, attrs)
	require.Equal(t, input, body)
}

func TestParse_Frontmatter_SplitsAttributesAndBody(t *testing.T) {
	input := []byte("---\ntitle: Home\ntags:\n  - one\n---\n# Title\n")

	attrs, body, had, err := Parse(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "Home", attrs["title"])
	require.Equal(t, []any{"one"}, attrs["tags"])
	require.Equal(t, []byte("# Title\n"), body)
}

func TestParse_CRLF_SplitsAttributesAndBody(t *testing.T) {
	input := []byte("---\r\ntitle: Home\r\n---\r\n# Title\r\n")

	attrs, body, had, err := Parse(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "Home", attrs["title"])
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestParse_EmptyBlock_HadWithEmptyAttributes(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	attrs, body, had, err := Parse(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, attrs)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestParse_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, _, err := Parse([]byte("---\ntitle: Home\n# Title\n"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestParse_InvalidYAML_ReturnsError(t *testing.T) {
	_, _, had, err := Parse([]byte("---\n: not yaml\n---\nbody\n"))
	require.Error(t, err)
	require.True(t, had)
}
