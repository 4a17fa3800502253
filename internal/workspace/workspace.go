// Package workspace holds the canvas graph of one workspace and keeps it in
// step with the backend.
package workspace

import (
	"fmt"
	"maps"
	"time"
)

// DefaultPosition is used for nodes stored without coordinates.
var DefaultPosition = Position{X: 100, Y: 100}

// Position is a point in graph coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one placed component. Overrides only ever holds the keys the
// user changed; defaults live on the component definition.
type Node struct {
	ID          string         `json:"nodeId"`
	ComponentID string         `json:"componentId"`
	Label       string         `json:"componentName"`
	Position    Position       `json:"position"`
	Overrides   map[string]any `json:"configOverrides"`
}

func (n Node) clone() Node {
	n.Overrides = maps.Clone(n.Overrides)
	if n.Overrides == nil {
		n.Overrides = map[string]any{}
	}
	return n
}

// MarkerType is the arrowhead drawn at an edge's target.
type MarkerType string

const (
	MarkerArrowClosed MarkerType = "arrowclosed"
	MarkerArrow       MarkerType = "arrow"
)

// Marker decorates an edge end.
type Marker struct {
	Type MarkerType `json:"type"`
}

// Edge is a visual connection between two nodes. Edges carry no meaning
// for cost or configuration.
type Edge struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	MarkerEnd *Marker `json:"markerEnd,omitempty"`
}

// EdgeID is the id given to the edge from source to target.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

func (e Edge) clone() Edge {
	if e.MarkerEnd != nil {
		m := *e.MarkerEnd
		e.MarkerEnd = &m
	}
	return e
}

// Workspace is a named, persisted canvas.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CostNode is the projection of a node sent to the cost calculator.
type CostNode struct {
	NodeID          string         `json:"nodeId"`
	ComponentID     string         `json:"componentId"`
	ConfigOverrides map[string]any `json:"configOverrides"`
}

// EffectiveConfig merges overrides over defaults, key by key. Neither
// input is modified.
func EffectiveConfig(defaults, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(overrides))
	maps.Copy(out, defaults)
	maps.Copy(out, overrides)
	return out
}
