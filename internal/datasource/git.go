package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/xavier/nanoc/internal/config"
	"github.com/xavier/nanoc/internal/content"
	"github.com/xavier/nanoc/internal/logfields"
	"github.com/xavier/nanoc/internal/retry"
)

// Git clones a repository and reads site content from the checkout. File
// modification times are meaningless after a clone, so every entity carries
// the HEAD commit time as its mtime instead.
type Git struct {
	url    string
	branch string
	token  string
	cfg    *config.Config

	dir    string
	sub    *Filesystem
	commit time.Time
}

// NewGit builds a git source from the merged site configuration. The site
// root is ignored; content comes from the clone.
func NewGit(root string, cfg *config.Config) (DataSource, error) {
	if cfg.Source.URL == "" {
		return nil, fmt.Errorf("git data source requires source.url")
	}
	return &Git{
		url:    cfg.Source.URL,
		branch: cfg.Source.Branch,
		token:  cfg.Source.Token,
		cfg:    cfg,
	}, nil
}

func (g *Git) Name() string { return "git" }

// Up clones the repository into a temporary directory and records the HEAD
// commit time. Clones retry with backoff; failures over the network are
// usually transient.
func (g *Git) Up(ctx context.Context) error {
	err := retry.DefaultPolicy().Do(ctx, "git clone", func() error {
		return g.clone(ctx)
	})
	if err != nil {
		return err
	}
	return g.sub.Up(ctx)
}

func (g *Git) clone(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "nanoc-git-*")
	if err != nil {
		return err
	}

	opts := &gogit.CloneOptions{URL: g.url}
	if g.branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + g.branch)
		opts.SingleBranch = true
	}
	if g.token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "token", Password: g.token}
	}

	slog.Debug("cloning site repository", logfields.DataSource(g.Name()), slog.String("url", g.url), logfields.Path(dir))
	repo, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("cloning %s: %w", g.url, err)
	}

	ref, err := repo.Head()
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("resolving HEAD of %s: %w", g.url, err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("reading HEAD commit: %w", err)
	}

	g.dir = dir
	g.commit = commit.Committer.When
	g.sub = NewFilesystem(dir, g.cfg)
	slog.Info("site repository cloned",
		logfields.DataSource(g.Name()),
		slog.String("commit", ref.Hash().String()[:8]),
		logfields.Path(dir))
	return nil
}

// Down removes the temporary clone.
func (g *Git) Down() error {
	if g.dir == "" {
		return nil
	}
	err := os.RemoveAll(g.dir)
	g.dir, g.sub = "", nil
	return err
}

func (g *Git) Loading(ctx context.Context, fn func() error) error {
	return bracket(ctx, g, fn)
}

func (g *Git) Items(ctx context.Context) ([]ItemRecord, error) {
	if g.sub == nil {
		return nil, errNotOpen
	}
	records, err := g.sub.Items(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		r.Item.Mtime = g.commit
	}
	return records, nil
}

func (g *Git) Defaults(ctx context.Context) (*content.Defaults, error) {
	if g.sub == nil {
		return nil, errNotOpen
	}
	d, err := g.sub.Defaults(ctx)
	if err != nil {
		return nil, err
	}
	if !d.Mtime.IsZero() {
		d.Mtime = g.commit
	}
	return d, nil
}

func (g *Git) Layouts(ctx context.Context) ([]LayoutRecord, error) {
	if g.sub == nil {
		return nil, errNotOpen
	}
	records, err := g.sub.Layouts(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		r.Layout.Mtime = g.commit
	}
	return records, nil
}

func (g *Git) Templates(ctx context.Context) ([]TemplateRecord, error) {
	if g.sub == nil {
		return nil, errNotOpen
	}
	records, err := g.sub.Templates(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		r.Template.Mtime = g.commit
	}
	return records, nil
}

func (g *Git) CodeSnippets(ctx context.Context) ([]CodeRecord, error) {
	if g.sub == nil {
		return nil, errNotOpen
	}
	records, err := g.sub.CodeSnippets(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		r.Snippet.Mtime = g.commit
	}
	return records, nil
}

var errNotOpen = fmt.Errorf("git data source is not open; reads must run inside Loading")
