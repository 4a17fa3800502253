// Package canvas turns canvas gestures into workspace mutations.
package canvas

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// Graph is the store surface the controller drives.
type Graph interface {
	AddNode(def catalog.ComponentDefinition, pos workspace.Position) []workspace.Node
	UpdateNodePosition(id string, pos workspace.Position) bool
	SetNodeConfig(id string, overrides map[string]any) bool
	RemoveNode(id string) bool
	AddEdge(source, target string, marker *workspace.Marker) (workspace.Edge, bool)
	Node(id string) (workspace.Node, bool)
	Save(ctx context.Context) error
	Subscribe(fn func(workspace.Change)) (cancel func())
}

// DropEvent is a completed drag over the canvas.
type DropEvent struct {
	Data   *DataTransfer
	Client Point
	Bounds Rect
}

// Controller owns the selection and the viewport and forwards every
// gesture to the store, saving after each structural change.
type Controller struct {
	graph  Graph
	logger zerolog.Logger
	cancel func()

	mu       sync.Mutex
	viewport *Viewport
	selected string
	// selGen changes whenever the selected node changes.
	selGen  uint64
	aliases map[string]string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New attaches a controller to graph. Call Close to detach it.
func New(graph Graph, opts ...Option) *Controller {
	c := &Controller{
		graph:   graph,
		logger:  zerolog.Nop(),
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cancel = graph.Subscribe(c.onChange)
	return c
}

// Close stops following store changes.
func (c *Controller) Close() {
	c.cancel()
}

// SetViewport installs the renderer's transform. nil means the renderer
// is not ready and drops are ignored.
func (c *Controller) SetViewport(v *Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		c.viewport = nil
		return
	}
	cp := *v
	c.viewport = &cp
}

// Viewport returns the current transform.
func (c *Controller) Viewport() (Viewport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewport == nil {
		return Viewport{}, false
	}
	return *c.viewport, true
}

// Drop places the dragged component at the drop point and saves. A drop
// before the viewport exists, or without a component payload, does
// nothing and returns nil, nil. When the save fails the node stays on the
// canvas and the error matches workspace.ErrPersistence.
func (c *Controller) Drop(ctx context.Context, ev DropEvent) (*workspace.Node, error) {
	vp, ok := c.Viewport()
	if !ok {
		c.logger.Debug().Msg("drop ignored, viewport not ready")
		return nil, nil
	}
	def, err := DecodePayload(ev.Data)
	if err != nil {
		c.logger.Debug().Err(err).Msg("drop ignored")
		return nil, nil
	}

	pos := vp.Project(ev.Client, ev.Bounds)
	nodes := c.graph.AddNode(def, pos)
	node := nodes[len(nodes)-1]

	saveErr := c.graph.Save(ctx)
	if current, ok := c.graph.Node(c.resolve(node.ID)); ok {
		node = current
	}
	if saveErr != nil {
		c.logger.Error().Err(saveErr).Str("nodeId", node.ID).Msg("saving after drop")
	}
	return &node, saveErr
}

// ClickNode selects a node. It reports false for unknown ids.
func (c *Controller) ClickNode(id string) bool {
	id = c.resolve(id)
	if _, ok := c.graph.Node(id); !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != id {
		c.selected = id
		c.selGen++
	}
	return true
}

// ClosePanel clears the selection.
func (c *Controller) ClosePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Selected returns the selected node, if any.
func (c *Controller) Selected() (workspace.Node, bool) {
	id, _ := c.Selection()
	if id == "" {
		return workspace.Node{}, false
	}
	return c.graph.Node(id)
}

// Selection returns the selected id and a generation counter that changes
// on every selection change.
func (c *Controller) Selection() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selGen
}

// Connect draws an edge with a closed arrowhead. Self-edges, duplicates
// and edges to unknown nodes are rejected.
func (c *Controller) Connect(source, target string) (workspace.Edge, bool) {
	return c.graph.AddEdge(c.resolve(source), c.resolve(target), &workspace.Marker{Type: workspace.MarkerArrowClosed})
}

// MoveNode records the end of a node drag and saves.
func (c *Controller) MoveNode(ctx context.Context, id string, pos workspace.Position) error {
	if !c.graph.UpdateNodePosition(c.resolve(id), pos) {
		return nil
	}
	return c.save(ctx, "saving after move")
}

// UpdateNodeConfig replaces a node's overrides and saves. An unknown id
// changes nothing but the save still runs.
func (c *Controller) UpdateNodeConfig(ctx context.Context, id string, overrides map[string]any) error {
	if !c.graph.SetNodeConfig(c.resolve(id), overrides) {
		c.logger.Debug().Str("nodeId", id).Msg("config change for unknown node")
	}
	return c.save(ctx, "saving after config change")
}

// DeleteNode removes a node with its edges, clears the selection if it
// pointed at the node, and saves.
func (c *Controller) DeleteNode(ctx context.Context, id string) error {
	id = c.resolve(id)
	if !c.graph.RemoveNode(id) {
		return nil
	}
	c.mu.Lock()
	if c.selected == id {
		c.clearLocked()
	}
	c.mu.Unlock()
	return c.save(ctx, "saving after delete")
}

func (c *Controller) save(ctx context.Context, msg string) error {
	if err := c.graph.Save(ctx); err != nil {
		c.logger.Error().Err(err).Msg(msg)
		return err
	}
	return nil
}

func (c *Controller) onChange(ch workspace.Change) {
	c.mu.Lock()
	for old, nid := range ch.Rekeyed {
		c.aliases[old] = nid
	}
	if nid, ok := ch.Rekeyed[c.selected]; ok {
		c.selected = nid
	}
	sel := c.selected
	c.mu.Unlock()

	if sel == "" {
		return
	}
	if _, ok := c.graph.Node(sel); !ok {
		c.mu.Lock()
		if c.selected == sel {
			c.clearLocked()
		}
		c.mu.Unlock()
	}
}

// resolve follows server-side id changes so callers holding an old id
// still reach the node.
func (c *Controller) resolve(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < 8; i++ {
		nid, ok := c.aliases[id]
		if !ok {
			break
		}
		id = nid
	}
	return id
}

func (c *Controller) clearLocked() {
	if c.selected != "" {
		c.selected = ""
		c.selGen++
	}
}
