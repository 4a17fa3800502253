package state

import (
	"os"
	"testing"
	"time"

	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

func TestState(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Empty state
	s := Load()
	if len(s.Workspaces) != 0 || s.Current != "" {
		t.Errorf("expected empty state, got %+v", s)
	}

	if err := Open("ws-1", "Payments"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if Current() != "ws-1" {
		t.Errorf("expected current ws-1, got %q", Current())
	}
	s = Load()
	if s.Workspaces["ws-1"].Name != "Payments" {
		t.Errorf("expected name Payments, got %q", s.Workspaces["ws-1"].Name)
	}
	if s.Workspaces["ws-1"].OpenedAt.IsZero() {
		t.Error("OpenedAt should be set")
	}

	// Reopening without a name keeps the old one
	if err := Open("ws-1", ""); err != nil {
		t.Fatal(err)
	}
	if Load().Workspaces["ws-1"].Name != "Payments" {
		t.Error("name should survive reopen")
	}

	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if Current() != "" {
		t.Error("Close should clear the current workspace")
	}
	if _, ok := Load().Workspaces["ws-1"]; !ok {
		t.Error("Close should keep canvas state")
	}

	if err := Forget("ws-1"); err != nil {
		t.Fatal(err)
	}
	if len(Load().Workspaces) != 0 {
		t.Error("Forget should drop the workspace")
	}
}

func TestViewport(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, ok := Viewport("ws-1"); ok {
		t.Error("no viewport should be set yet")
	}
	want := canvas.Viewport{X: -40, Y: 12.5, Zoom: 1.5}
	if err := SetViewport("ws-1", want); err != nil {
		t.Fatal(err)
	}
	got, ok := Viewport("ws-1")
	if !ok || got != want {
		t.Errorf("expected %+v, got %+v (ok=%v)", want, got, ok)
	}
}

func TestEdges(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if got := Edges("ws-1"); len(got) != 0 {
		t.Errorf("expected no edges, got %v", got)
	}

	edges := []workspace.Edge{
		{ID: workspace.EdgeID("a", "b"), Source: "a", Target: "b", MarkerEnd: &workspace.Marker{Type: workspace.MarkerArrowClosed}},
		{ID: workspace.EdgeID("b", "c"), Source: "b", Target: "c"},
	}
	if err := SetEdges("ws-1", edges); err != nil {
		t.Fatal(err)
	}
	got := Edges("ws-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(got))
	}
	if got[0].ID != "e-a-b" || got[0].MarkerEnd == nil || got[0].MarkerEnd.Type != workspace.MarkerArrowClosed {
		t.Errorf("unexpected first edge %+v", got[0])
	}
	if got[1].MarkerEnd != nil {
		t.Errorf("second edge should have no marker, got %+v", got[1].MarkerEnd)
	}
	if len(Edges("ws-2")) != 0 {
		t.Error("edges are per workspace")
	}
}

func TestRecent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s := Load()
	now := time.Now().UTC()
	s.Workspaces["old"] = Canvas{OpenedAt: now.Add(-time.Hour)}
	s.Workspaces["new"] = Canvas{OpenedAt: now}
	s.Workspaces["never"] = Canvas{}
	if err := Save(s); err != nil {
		t.Fatal(err)
	}

	got := Recent()
	want := []string{"new", "old", "never"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestState_DefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	path := statePath()
	home, _ := os.UserHomeDir()
	if path == "" {
		t.Fatal("statePath should not be empty")
	}
	if path != home+"/.config/cloudcanvas/state.toml" {
		t.Errorf("unexpected path: %q", path)
	}
}
