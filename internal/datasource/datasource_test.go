package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/xavier/nanoc/internal/content"
)

type stubSource struct {
	upErr   error
	downErr error
	fnCalls *int

	upCalls   int
	downCalls int
}

func (s *stubSource) Name() string                { return "stub" }
func (s *stubSource) Up(context.Context) error    { s.upCalls++; return s.upErr }
func (s *stubSource) Down() error                 { s.downCalls++; return s.downErr }
func (s *stubSource) Loading(ctx context.Context, fn func() error) error {
	return bracket(ctx, s, fn)
}
func (s *stubSource) Items(context.Context) ([]ItemRecord, error)         { return nil, nil }
func (s *stubSource) Defaults(context.Context) (*content.Defaults, error) { return nil, nil }
func (s *stubSource) Layouts(context.Context) ([]LayoutRecord, error)     { return nil, nil }
func (s *stubSource) Templates(context.Context) ([]TemplateRecord, error) { return nil, nil }
func (s *stubSource) CodeSnippets(context.Context) ([]CodeRecord, error)  { return nil, nil }

func TestLoading_BracketsWithUpAndDown(t *testing.T) {
	s := &stubSource{}
	ran := false

	err := s.Loading(context.Background(), func() error {
		ran = true
		if s.upCalls != 1 {
			t.Fatalf("fn ran before Up")
		}
		if s.downCalls != 0 {
			t.Fatalf("Down ran before fn finished")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Loading: %v", err)
	}
	if !ran {
		t.Fatalf("fn never ran")
	}
	if s.downCalls != 1 {
		t.Fatalf("Down calls = %d, want 1", s.downCalls)
	}
}

func TestLoading_TearsDownOnFnError(t *testing.T) {
	s := &stubSource{}
	boom := errors.New("boom")

	err := s.Loading(context.Background(), func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if s.downCalls != 1 {
		t.Fatalf("Down calls = %d, want 1", s.downCalls)
	}
}

func TestLoading_UpErrorSkipsFnAndDown(t *testing.T) {
	upErr := errors.New("up failed")
	s := &stubSource{upErr: upErr}

	err := s.Loading(context.Background(), func() error {
		t.Fatal("fn ran despite Up failure")
		return nil
	})
	if !errors.Is(err, upErr) {
		t.Fatalf("err = %v, want %v", err, upErr)
	}
	if s.downCalls != 0 {
		t.Fatalf("Down calls = %d, want 0", s.downCalls)
	}
}

func TestLoading_JoinsFnAndDownErrors(t *testing.T) {
	fnErr := errors.New("fn failed")
	downErr := errors.New("down failed")
	s := &stubSource{downErr: downErr}

	err := s.Loading(context.Background(), func() error { return fnErr })
	if !errors.Is(err, fnErr) {
		t.Fatalf("err %v does not wrap fn error", err)
	}
	if !errors.Is(err, downErr) {
		t.Fatalf("err %v does not wrap Down error", err)
	}
}

func TestRecordUnions_LegacyDetection(t *testing.T) {
	typed := ItemRecord{Item: &content.Item{Identifier: "/"}}
	if typed.Legacy() {
		t.Fatal("typed record reported legacy")
	}
	legacy := ItemRecord{Raw: map[string]any{"identifier": "/old/"}}
	if !legacy.Legacy() {
		t.Fatal("raw record not reported legacy")
	}
	if !(CodeRecord{Raw: "func x() {}"}).Legacy() {
		t.Fatal("raw code record not reported legacy")
	}
}
