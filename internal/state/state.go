package state

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/config"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// EdgeRecord is a connection drawn on a canvas. Edges are not part of the
// workspace API, so they live here between sessions.
type EdgeRecord struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
	Marker string `toml:"marker,omitempty"`
}

// Canvas is the local view state of one workspace.
type Canvas struct {
	Name     string          `toml:"name,omitempty"`
	Viewport canvas.Viewport `toml:"viewport"`
	Edges    []EdgeRecord    `toml:"edges"`
	OpenedAt time.Time       `toml:"opened_at"`
}

// State tracks the open workspace and per-workspace canvas state.
type State struct {
	Current    string            `toml:"current"`
	Workspaces map[string]Canvas `toml:"workspaces"`
}

func statePath() string {
	return filepath.Join(config.ConfigDir(), "state.toml")
}

// Load reads the state file, returning empty state if it doesn't exist.
func Load() *State {
	s := &State{Workspaces: make(map[string]Canvas)}
	data, err := os.ReadFile(statePath())
	if err != nil {
		return s
	}
	_ = toml.Unmarshal(data, s)
	if s.Workspaces == nil {
		s.Workspaces = make(map[string]Canvas)
	}
	return s
}

// Save writes the state file to disk.
func Save(s *State) error {
	path := statePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// Open makes id the current workspace and stamps it as recently opened.
func Open(id, name string) error {
	s := Load()
	c := s.Workspaces[id]
	if name != "" {
		c.Name = name
	}
	c.OpenedAt = time.Now().UTC()
	s.Workspaces[id] = c
	s.Current = id
	return Save(s)
}

// Current returns the open workspace id, or "" when none is open.
func Current() string {
	return Load().Current
}

// Close forgets which workspace is open. Canvas state is kept.
func Close() error {
	s := Load()
	s.Current = ""
	return Save(s)
}

// Forget drops all local state of a workspace.
func Forget(id string) error {
	s := Load()
	delete(s.Workspaces, id)
	if s.Current == id {
		s.Current = ""
	}
	return Save(s)
}

// Viewport returns the stored transform of a workspace. ok is false when
// none was set.
func Viewport(id string) (canvas.Viewport, bool) {
	vp := Load().Workspaces[id].Viewport
	if vp.Zoom <= 0 {
		return canvas.Viewport{}, false
	}
	return vp, true
}

// SetViewport stores the transform of a workspace.
func SetViewport(id string, vp canvas.Viewport) error {
	s := Load()
	c := s.Workspaces[id]
	c.Viewport = vp
	s.Workspaces[id] = c
	return Save(s)
}

// Edges returns the edges drawn on a workspace.
func Edges(id string) []workspace.Edge {
	recs := Load().Workspaces[id].Edges
	out := make([]workspace.Edge, 0, len(recs))
	for _, r := range recs {
		e := workspace.Edge{ID: workspace.EdgeID(r.Source, r.Target), Source: r.Source, Target: r.Target}
		if r.Marker != "" {
			e.MarkerEnd = &workspace.Marker{Type: workspace.MarkerType(r.Marker)}
		}
		out = append(out, e)
	}
	return out
}

// SetEdges replaces the edges of a workspace.
func SetEdges(id string, edges []workspace.Edge) error {
	s := Load()
	c := s.Workspaces[id]
	c.Edges = make([]EdgeRecord, 0, len(edges))
	for _, e := range edges {
		r := EdgeRecord{Source: e.Source, Target: e.Target}
		if e.MarkerEnd != nil {
			r.Marker = string(e.MarkerEnd.Type)
		}
		c.Edges = append(c.Edges, r)
	}
	s.Workspaces[id] = c
	return Save(s)
}

// Recent returns workspace ids, most recently opened first.
func Recent() []string {
	s := Load()
	ids := make([]string, 0, len(s.Workspaces))
	for id := range s.Workspaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Workspaces[ids[i]].OpenedAt, s.Workspaces[ids[j]].OpenedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return ids[i] < ids[j]
	})
	return ids
}
