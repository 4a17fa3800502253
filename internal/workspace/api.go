package workspace

import (
	"context"
	"net/url"
	"time"

	"github.com/juju/errors"
)

// Remote is the backend's workspace resource.
type Remote interface {
	List(ctx context.Context) ([]Workspace, error)
	Create(ctx context.Context, name string) (*Workspace, error)
	Get(ctx context.Context, id string) (*Workspace, error)
	Replace(ctx context.Context, id string, nodes []Node) (*Workspace, error)
}

// Requester is the subset of the request client used by API.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

// API implements Remote over the REST endpoints.
type API struct {
	client Requester
}

// NewAPI binds the workspace endpoints to client.
func NewAPI(client Requester) *API {
	return &API{client: client}
}

type wireNode struct {
	ID          string         `json:"nodeId"`
	ComponentID string         `json:"componentId"`
	Label       string         `json:"componentName,omitempty"`
	Position    *Position      `json:"position,omitempty"`
	Overrides   map[string]any `json:"configOverrides"`
}

type wireWorkspace struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Nodes     []wireNode `json:"nodes"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

// decode converts a response body. A body without a node list decodes to
// nil Nodes so that callers can tell it apart from an empty workspace.
func (w wireWorkspace) decode() *Workspace {
	ws := &Workspace{ID: w.ID, Name: w.Name}
	if w.Nodes != nil {
		ws.Nodes = make([]Node, 0, len(w.Nodes))
	}
	for _, n := range w.Nodes {
		node := Node{
			ID:          n.ID,
			ComponentID: n.ComponentID,
			Label:       n.Label,
			Position:    DefaultPosition,
			Overrides:   n.Overrides,
		}
		if n.Position != nil {
			node.Position = *n.Position
		}
		if node.Overrides == nil {
			node.Overrides = map[string]any{}
		}
		ws.Nodes = append(ws.Nodes, node)
	}
	if w.UpdatedAt != "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
			if t, err := time.Parse(layout, w.UpdatedAt); err == nil {
				ws.UpdatedAt = t
				break
			}
		}
	}
	return ws
}

func encodeNodes(nodes []Node) []wireNode {
	out := make([]wireNode, len(nodes))
	for i, n := range nodes {
		pos := n.Position
		overrides := n.Overrides
		if overrides == nil {
			overrides = map[string]any{}
		}
		out[i] = wireNode{
			ID:          n.ID,
			ComponentID: n.ComponentID,
			Label:       n.Label,
			Position:    &pos,
			Overrides:   overrides,
		}
	}
	return out
}

const workspacesPath = "/api/workspaces"

func workspacePath(id string) string {
	return workspacesPath + "/" + url.PathEscape(id)
}

// List returns every workspace visible to the caller.
func (a *API) List(ctx context.Context) ([]Workspace, error) {
	var resp struct {
		Workspaces []wireWorkspace `json:"workspaces"`
	}
	if err := a.client.Get(ctx, workspacesPath, &resp); err != nil {
		return nil, errors.Annotate(err, "listing workspaces")
	}
	out := make([]Workspace, 0, len(resp.Workspaces))
	for _, w := range resp.Workspaces {
		out = append(out, *w.decode())
	}
	return out, nil
}

// Create makes an empty workspace.
func (a *API) Create(ctx context.Context, name string) (*Workspace, error) {
	var resp wireWorkspace
	body := map[string]string{"name": name}
	if err := a.client.Post(ctx, workspacesPath, body, &resp); err != nil {
		return nil, errors.Annotatef(err, "creating workspace %q", name)
	}
	ws := resp.decode()
	if ws.Name == "" {
		ws.Name = name
	}
	return ws, nil
}

// Get fetches one workspace.
func (a *API) Get(ctx context.Context, id string) (*Workspace, error) {
	var resp wireWorkspace
	if err := a.client.Get(ctx, workspacePath(id), &resp); err != nil {
		return nil, err
	}
	ws := resp.decode()
	if ws.ID == "" {
		ws.ID = id
	}
	return ws, nil
}

// Replace overwrites the workspace's node list and returns the server's
// authoritative copy.
func (a *API) Replace(ctx context.Context, id string, nodes []Node) (*Workspace, error) {
	var resp wireWorkspace
	body := struct {
		Nodes []wireNode `json:"nodes"`
	}{Nodes: encodeNodes(nodes)}
	if err := a.client.Put(ctx, workspacePath(id), body, &resp); err != nil {
		return nil, err
	}
	ws := resp.decode()
	if ws.ID == "" {
		ws.ID = id
	}
	return ws, nil
}
