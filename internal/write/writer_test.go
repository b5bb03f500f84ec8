package write

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xavier/nanoc/internal/compile"
	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	nanocerr "github.com/xavier/nanoc/internal/errors"
	"github.com/xavier/nanoc/internal/router"
	"github.com/xavier/nanoc/internal/rules"
)

type siteStub struct {
	items []*content.Item
	cfg   config.Config
	rtr   router.Router
}

func (s *siteStub) Items() []*content.Item      { return s.items }
func (s *siteStub) Layouts() []*content.Layout  { return nil }
func (s *siteStub) Config() *config.Config      { return &s.cfg }
func (s *siteStub) Defaults() *content.Defaults { return nil }
func (s *siteStub) Router() router.Router       { return s.rtr }

// compiledReps runs a real no-step compile pass so reps arrive routed the
// same way the production pipeline routes them.
func compiledReps(t *testing.T, items ...*content.Item) []*compile.ItemRep {
	t.Helper()
	cfg := config.Default()
	rtr, err := router.NewDefault(&cfg)
	require.NoError(t, err)

	c := compile.NewCompiler(&siteStub{items: items, cfg: cfg, rtr: rtr}, rules.Default())
	reps, err := c.Run(context.Background())
	require.NoError(t, err)
	return reps
}

func textItem(id, body string) *content.Item {
	return &content.Item{Identifier: id, RawContent: []byte(body), Attributes: map[string]any{}}
}

func statuses(results []Result) map[string]Status {
	out := make(map[string]Status, len(results))
	for _, r := range results {
		out[r.Rep.Item.Identifier] = r.Status
	}
	return out
}

func TestWriteAllCreatesRoutedFiles(t *testing.T) {
	out := t.TempDir()
	reps := compiledReps(t, textItem("/", "home"), textItem("/about/", "about us"))

	results, err := NewWriter(out).WriteAll(context.Background(), reps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, StatusCreated, r.Status)
	}

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	require.Equal(t, "home", string(home))

	about, err := os.ReadFile(filepath.Join(out, "about", "index.html"))
	require.NoError(t, err)
	require.Equal(t, "about us", string(about))
}

func TestSecondPassReportsIdentical(t *testing.T) {
	out := t.TempDir()
	w := NewWriter(out)
	reps := compiledReps(t, textItem("/", "home"))

	_, err := w.WriteAll(context.Background(), reps)
	require.NoError(t, err)

	results, err := w.WriteAll(context.Background(), reps)
	require.NoError(t, err)
	require.Equal(t, StatusIdentical, results[0].Status)
}

func TestChangedContentReportsUpdated(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("stale"), 0o644))

	reps := compiledReps(t, textItem("/", "fresh"))
	results, err := NewWriter(out).WriteAll(context.Background(), reps)
	require.NoError(t, err)
	require.Equal(t, StatusUpdated, results[0].Status)

	got, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	require.Equal(t, "fresh", string(got))
}

func TestUncompiledAndUnroutedAreSkipped(t *testing.T) {
	out := t.TempDir()

	hidden := textItem("/secret/", "shh")
	hidden.Attributes["skip_output"] = true
	reps := compiledReps(t, hidden)

	// A rep that never went through a compile pass stays unwritten too.
	reps = append(reps, compile.NewItemRep(textItem("/raw/", "raw"), router.DefaultRep))

	results, err := NewWriter(out).WriteAll(context.Background(), reps)
	require.NoError(t, err)
	require.Equal(t, map[string]Status{"/secret/": StatusSkipped, "/raw/": StatusSkipped}, statuses(results))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBinaryContentWrittenVerbatim(t *testing.T) {
	out := t.TempDir()
	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0x0d}
	logo := &content.Item{
		Identifier: "/logo/",
		RawContent: raw,
		Attributes: map[string]any{"extension": "png"},
		Binary:     true,
	}

	results, err := NewWriter(out).WriteAll(context.Background(), compiledReps(t, logo))
	require.NoError(t, err)
	require.Equal(t, StatusCreated, results[0].Status)

	got, err := os.ReadFile(filepath.Join(out, "logo.png"))
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestFailedWriteDoesNotStopThePass(t *testing.T) {
	out := t.TempDir()
	// A plain file where a directory is needed makes that one rep fail.
	require.NoError(t, os.WriteFile(filepath.Join(out, "about"), []byte("in the way"), 0o644))

	reps := compiledReps(t, textItem("/about/", "blocked"), textItem("/", "fine"))
	results, err := NewWriter(out).WriteAll(context.Background(), reps)
	require.Error(t, err)
	require.True(t, nanocerr.IsCategory(err, nanocerr.CategoryIO))

	require.Equal(t, map[string]Status{"/": StatusCreated}, statuses(results))
	home, rerr := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, rerr)
	require.Equal(t, "fine", string(home))
}
