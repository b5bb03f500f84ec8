package check

import (
	"context"
	"testing"
)

func TestStaleFlagsFilesNoBuildProduced(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "index.html", "<html></html>")
	writeOutput(t, out, "about/index.html", "<html></html>")
	writeOutput(t, out, "old-page.html", "<html></html>")

	target := NewTarget(out, "")
	target.MarkWritten("index.html")
	target.MarkWritten("/about/index.html")

	issues, err := Stale{}.Check(context.Background(), target)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	if issues[0].Subject != "old-page.html" {
		t.Fatalf("flagged %q", issues[0].Subject)
	}
}

func TestStaleRefusesToRunWithoutAWrittenSet(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "index.html", "<html></html>")

	if _, err := (Stale{}).Check(context.Background(), NewTarget(out, "")); err == nil {
		t.Fatal("expected an error without a written set")
	}
}

func TestByNameResolvesAliases(t *testing.T) {
	checkers, err := ByName("ilinks", "external_links", "stale")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if len(checkers) != 3 {
		t.Fatalf("got %d checkers", len(checkers))
	}
	if checkers[0].Name() != "internal_links" {
		t.Fatalf("alias resolved to %q", checkers[0].Name())
	}

	if _, err := ByName("spellcheck"); err == nil {
		t.Fatal("unknown check accepted")
	}
}

func TestRunAggregatesAcrossCheckers(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "index.html", `<a href="/missing/">gone</a>`)
	writeOutput(t, out, "leftover.html", "<html></html>")

	target := NewTarget(out, "")
	target.MarkWritten("index.html")

	issues, err := Run(context.Background(), target, InternalLinks{}, Stale{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2: %+v", len(issues), issues)
	}
}
