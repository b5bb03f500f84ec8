package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/xavier/nanoc/internal/config"
)

// initSiteRepo builds a site tree in a fresh repository and commits it,
// returning the repo path and the commit timestamp.
func initSiteRepo(t *testing.T) (string, time.Time) {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "content", "index.md"), "---\ntitle: Home\n---\n# Home\n")
	writeFile(t, filepath.Join(dir, "content", "about.md"), "about\n")
	writeFile(t, filepath.Join(dir, "layouts", "default.html"), "<html></html>\n")
	writeFile(t, filepath.Join(dir, "lib", "helpers.go"), "package lib\n")

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)

	when := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	_, err = wt.Commit("initial site", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	return dir, when
}

func TestGitSource_ClonesAndStampsCommitTime(t *testing.T) {
	repoDir, committed := initSiteRepo(t)

	cfg := config.Default()
	cfg.Source.URL = repoDir
	ds, err := NewGit("", &cfg)
	require.NoError(t, err)

	var items []ItemRecord
	var layouts []LayoutRecord
	var snippets []CodeRecord
	err = ds.Loading(context.Background(), func() error {
		var err error
		if items, err = ds.Items(context.Background()); err != nil {
			return err
		}
		if layouts, err = ds.Layouts(context.Background()); err != nil {
			return err
		}
		snippets, err = ds.CodeSnippets(context.Background())
		return err
	})
	require.NoError(t, err)

	require.Len(t, items, 2)
	require.Equal(t, "/", items[0].Item.Identifier)
	require.Equal(t, "Home", items[0].Item.Attributes["title"])
	require.True(t, items[0].Item.Mtime.Equal(committed), "item mtime should be the commit time")

	require.Len(t, layouts, 1)
	require.True(t, layouts[0].Layout.Mtime.Equal(committed))

	require.Len(t, snippets, 1)
	require.Equal(t, "lib/helpers.go", snippets[0].Snippet.Filename)
	require.True(t, snippets[0].Snippet.Mtime.Equal(committed))
}

func TestGitSource_DownRemovesClone(t *testing.T) {
	repoDir, _ := initSiteRepo(t)

	cfg := config.Default()
	cfg.Source.URL = repoDir
	ds, err := NewGit("", &cfg)
	require.NoError(t, err)
	g := ds.(*Git)

	var cloneDir string
	err = ds.Loading(context.Background(), func() error {
		cloneDir = g.dir
		_, statErr := os.Stat(cloneDir)
		return statErr
	})
	require.NoError(t, err)

	_, err = os.Stat(cloneDir)
	require.True(t, os.IsNotExist(err), "clone directory should be removed after Loading")
}

func TestGitSource_ReadsOutsideLoadingFail(t *testing.T) {
	repoDir, _ := initSiteRepo(t)

	cfg := config.Default()
	cfg.Source.URL = repoDir
	ds, err := NewGit("", &cfg)
	require.NoError(t, err)

	_, err = ds.Items(context.Background())
	require.Error(t, err)
}

func TestGitSource_RequiresURL(t *testing.T) {
	cfg := config.Default()
	_, err := NewGit("", &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "source.url")
}
