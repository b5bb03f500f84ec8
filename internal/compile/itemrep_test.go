package compile

import (
	"bytes"
	"context"
	"testing"
)

func TestNewItemRepSeedsSnapshots(t *testing.T) {
	item := textItem("/page/", "hello")
	rep := NewItemRep(item, "")

	if rep.Name != DefaultRep {
		t.Fatalf("empty rep name should become %q, got %q", DefaultRep, rep.Name)
	}
	raw, ok := rep.SnapshotContent(SnapshotRaw)
	if !ok || !bytes.Equal(raw, []byte("hello")) {
		t.Fatalf("raw snapshot not seeded: %q ok=%v", raw, ok)
	}
	if !bytes.Equal(rep.Last(), []byte("hello")) {
		t.Fatalf("last snapshot not seeded: %q", rep.Last())
	}
	if rep.Compiled() {
		t.Fatal("fresh rep must not be compiled")
	}
	if _, routed := rep.Path(); routed {
		t.Fatal("fresh rep must not be routed")
	}
}

func TestCapturesSurviveLaterSteps(t *testing.T) {
	rep := NewItemRep(textItem("/page/", "one"), "default")
	rep.capture("checkpoint")
	rep.setLast([]byte("two"))

	cp, ok := rep.SnapshotContent("checkpoint")
	if !ok || string(cp) != "one" {
		t.Fatalf("checkpoint should keep the captured content, got %q ok=%v", cp, ok)
	}
	if string(rep.Last()) != "two" {
		t.Fatalf("last should advance, got %q", rep.Last())
	}
}

func TestCaptureIfAbsentKeepsFirstCapture(t *testing.T) {
	rep := NewItemRep(textItem("/page/", "first"), "default")
	rep.captureIfAbsent(SnapshotPre)
	rep.setLast([]byte("second"))
	rep.captureIfAbsent(SnapshotPre)

	pre, _ := rep.SnapshotContent(SnapshotPre)
	if string(pre) != "first" {
		t.Fatalf("pre must stay at the first capture, got %q", pre)
	}
}

func TestProxyForwardsReads(t *testing.T) {
	item := textItem("/about/", "abc")
	c := newTestCompiler(newTestProvider(item), &stubRules{})

	rep := NewItemRep(item, "default")
	proxy := NewProxy(rep, c)

	if proxy.Name() != "default" {
		t.Fatalf("Name: got %q", proxy.Name())
	}
	if proxy.IsBinary() {
		t.Fatal("IsBinary: textual item reported binary")
	}
	if proxy.Item() != item {
		t.Fatal("Item: wrong item")
	}
	if string(proxy.CompiledContent()) != "abc" {
		t.Fatalf("CompiledContent: got %q", proxy.CompiledContent())
	}

	proxy.Snapshot("manual")
	if got, ok := proxy.SnapshotContent("manual"); !ok || string(got) != "abc" {
		t.Fatalf("SnapshotContent: got %q ok=%v", got, ok)
	}

	p, err := proxy.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if p != "/about/index.html" {
		t.Fatalf("Path: got %q", p)
	}
	// Routing is cached on the rep afterwards.
	if cached, routed := rep.Path(); !routed || cached != p {
		t.Fatalf("path not cached: %q routed=%v", cached, routed)
	}
}

func TestProxyFilterMutatesRep(t *testing.T) {
	item := textItem("/page/", "abc")
	c := newTestCompiler(newTestProvider(item), &stubRules{}, exclaim())

	rep := NewItemRep(item, "default")
	proxy := NewProxy(rep, c)
	if err := proxy.Filter(context.Background(), "exclaim", nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if string(rep.Last()) != "abc!" {
		t.Fatalf("filter did not advance last: %q", rep.Last())
	}
}
