package mockapi

import "time"

// Component is a catalog entry as served on the wire.
type Component struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Provider    string             `json:"provider"`
	Category    string             `json:"category"`
	Config      map[string]any     `json:"config"`
	Pricing     map[string]float64 `json:"pricing"`
	Icon        string             `json:"icon,omitempty"`
	Description string             `json:"description,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a placed component as stored by the backend.
type Node struct {
	NodeID          string         `json:"nodeId" validate:"required,max=200"`
	ComponentID     string         `json:"componentId" validate:"required"`
	ComponentName   string         `json:"componentName,omitempty"`
	Position        *Position      `json:"position,omitempty"`
	ConfigOverrides map[string]any `json:"configOverrides"`
}

// Workspace is a named canvas.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkspaceSummary is a list entry; it omits the node list.
type WorkspaceSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"nodeCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type replaceNodesRequest struct {
	Nodes []Node `json:"nodes" validate:"dive"`
}

type costNode struct {
	NodeID          string         `json:"nodeId"`
	ComponentID     string         `json:"componentId" validate:"required"`
	ConfigOverrides map[string]any `json:"configOverrides"`
}

type costRequest struct {
	Nodes []costNode `json:"nodes" validate:"dive"`
}

// CostItem is one line of a cost breakdown.
type CostItem struct {
	NodeID        string  `json:"nodeId,omitempty"`
	ComponentID   string  `json:"componentId"`
	ComponentName string  `json:"componentName"`
	Cost          float64 `json:"cost"`
}

// CostResponse is the answer of the cost endpoint.
type CostResponse struct {
	TotalCost float64    `json:"total_cost"`
	Breakdown []CostItem `json:"breakdown"`
}

type apiError struct {
	Detail string `json:"detail"`
}
