package session

import (
	"context"
	"testing"
)

func newSelectorHarness(t *testing.T) (*Selector, *harness, *harness) {
	t.Helper()
	analyzer := newHarness(t)
	analyzer.c.opts.Engine = "analyzer"
	legacy := newHarness(t)

	s, err := NewSelector("analyzer", analyzer.c, legacy.c)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	return s, analyzer, legacy
}

func TestNewSelector_Errors(t *testing.T) {
	h := newHarness(t)
	if _, err := NewSelector("analyzer", h.c); err == nil {
		t.Error("expected error for unknown selected engine")
	}
	if _, err := NewSelector("legacy", h.c, h.c); err == nil {
		t.Error("expected error for duplicate engine")
	}
}

func TestSelector_Engines(t *testing.T) {
	s, _, _ := newSelectorHarness(t)
	got := s.Engines()
	if len(got) != 2 || got[0] != "analyzer" || got[1] != "legacy" {
		t.Errorf("Engines() = %v", got)
	}
	if s.Selected() != "analyzer" {
		t.Errorf("Selected() = %q, want analyzer", s.Selected())
	}
}

func TestSelector_Toggle(t *testing.T) {
	s, analyzer, legacy := newSelectorHarness(t)
	ctx := context.Background()

	if err := s.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if analyzer.c.State() != StateStreaming {
		t.Errorf("analyzer state = %v, want streaming", analyzer.c.State())
	}
	if legacy.c.State() != StateIdle {
		t.Errorf("legacy state = %v, want idle", legacy.c.State())
	}

	if err := s.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	analyzer.assertReleased()
}

func TestSelector_SelectStopsPrevious(t *testing.T) {
	s, analyzer, legacy := newSelectorHarness(t)
	if err := s.Toggle(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.Select("legacy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	analyzer.assertReleased()
	if s.Current() != legacy.c {
		t.Error("Current() should be the legacy coordinator")
	}
	if err := s.Select("cloud"); err == nil {
		t.Error("expected error for unknown engine")
	}
	if s.Selected() != "legacy" {
		t.Errorf("failed Select changed selection to %q", s.Selected())
	}
}

func TestSelector_NextWraps(t *testing.T) {
	s, _, _ := newSelectorHarness(t)
	for _, want := range []string{"legacy", "analyzer", "legacy"} {
		got, err := s.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got != want || s.Selected() != want {
			t.Errorf("Next() = %q (selected %q), want %q", got, s.Selected(), want)
		}
	}
}

func TestSelector_StopAll(t *testing.T) {
	s, analyzer, legacy := newSelectorHarness(t)
	analyzer.start()
	legacy.start()

	s.StopAll()
	analyzer.assertReleased()
	legacy.assertReleased()
}
