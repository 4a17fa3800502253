// Package editor is the configuration panel for the selected node.
package editor

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/registry"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// DeletePrompt is the confirmation question asked before a delete.
const DeletePrompt = "Are you sure you want to delete this component?"

// NotFoundMessage is shown when a node's component no longer exists.
const NotFoundMessage = "Component not found"

const (
	// ErrStale is returned by Open when a newer Open or a selection change
	// superseded the request.
	ErrStale = errors.ConstError("editor request superseded")

	// ErrNoView is returned when editing without an open, ready view.
	ErrNoView = errors.ConstError("no component open for editing")

	// ErrUnknownNode is returned by Open for ids not on the canvas.
	ErrUnknownNode = errors.ConstError("node not on canvas")
)

// State is the panel's display state.
type State int

const (
	StateLoading State = iota
	StateReady
	StateNotFound
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateNotFound:
		return "not found"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Canvas is the controller surface the editor needs.
type Canvas interface {
	ClickNode(id string) bool
	ClosePanel()
	Selection() (string, uint64)
	Selected() (workspace.Node, bool)
	UpdateNodeConfig(ctx context.Context, id string, overrides map[string]any) error
	DeleteNode(ctx context.Context, id string) error
}

// ComponentSource resolves component definitions.
type ComponentSource interface {
	Get(ctx context.Context, id string) (catalog.ComponentDefinition, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// View is what the panel shows for one node.
type View struct {
	State      State
	Message    string
	Node       workspace.Node
	Definition catalog.ComponentDefinition
	Effective  map[string]any
	Fields     []registry.Field
}

// FieldError reports input that could not be applied to a field.
type FieldError struct {
	Key string
	Raw string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Editor drives the configuration panel.
type Editor struct {
	canvas     Canvas
	components ComponentSource
	schemas    *registry.Registry
	logger     zerolog.Logger

	mu     sync.Mutex
	ticket uint64
	view   *View
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New returns an editor. schemas may be nil, in which case fields are
// inferred from component defaults.
func New(canvas Canvas, components ComponentSource, schemas *registry.Registry, opts ...Option) *Editor {
	e := &Editor{
		canvas:     canvas,
		components: components,
		schemas:    schemas,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open selects the node and loads its definition. A missing definition
// gives a StateNotFound view and no error. A transient failure gives a
// StateError view together with the error.
func (e *Editor) Open(ctx context.Context, nodeID string) (*View, error) {
	if !e.canvas.ClickNode(nodeID) {
		return nil, errors.WithType(errors.Errorf("node %q", nodeID), ErrUnknownNode)
	}
	node, ok := e.canvas.Selected()
	if !ok {
		return nil, errors.WithType(errors.Errorf("node %q", nodeID), ErrUnknownNode)
	}
	_, gen := e.canvas.Selection()

	e.mu.Lock()
	e.ticket++
	ticket := e.ticket
	e.view = &View{State: StateLoading, Node: node}
	e.mu.Unlock()

	def, err := e.components.Get(ctx, node.ComponentID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, cur := e.canvas.Selection(); ticket != e.ticket || cur != gen {
		e.logger.Debug().Str("nodeId", node.ID).Msg("discarding superseded component lookup")
		return nil, errors.Trace(ErrStale)
	}

	view := &View{Node: node}
	switch {
	case errors.Is(err, catalog.ErrComponentNotFound):
		view.State = StateNotFound
		view.Message = NotFoundMessage
	case err != nil:
		e.logger.Error().Err(err).Str("componentId", node.ComponentID).Msg("loading component")
		view.State = StateError
		view.Message = err.Error()
		e.view = view
		return copyView(view), err
	default:
		view.State = StateReady
		view.Definition = def
		view.Effective = workspace.EffectiveConfig(def.Config, node.Overrides)
		view.Fields = e.schemas.Fields(def.ID, def.Category, def.Config)
	}
	e.view = view
	return copyView(view), nil
}

// Current returns the open view, if any.
func (e *Editor) Current() (*View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return nil, false
	}
	return copyView(e.view), true
}

// Close hides the panel and clears the selection.
func (e *Editor) Close() {
	e.mu.Lock()
	e.ticket++
	e.view = nil
	e.mu.Unlock()
	e.canvas.ClosePanel()
}

// SetField applies one edit. See SetFields.
func (e *Editor) SetField(ctx context.Context, key, raw string) error {
	return e.SetFields(ctx, map[string]string{key: raw})
}

// SetFields parses and validates every edit, then writes the full
// effective configuration with the edits applied as the node's overrides.
// Nothing is written if any edit is invalid.
func (e *Editor) SetFields(ctx context.Context, edits map[string]string) error {
	e.mu.Lock()
	view := e.view
	if view == nil || view.State != StateReady {
		e.mu.Unlock()
		return errors.Trace(ErrNoView)
	}
	if sel, _ := e.canvas.Selection(); sel != view.Node.ID {
		e.mu.Unlock()
		return errors.Trace(ErrNoView)
	}

	keys := make([]string, 0, len(edits))
	for k := range edits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := maps.Clone(view.Effective)
	if next == nil {
		next = map[string]any{}
	}
	for _, key := range keys {
		raw := edits[key]
		field, ok := findField(view.Fields, key)
		if !ok {
			e.mu.Unlock()
			return &FieldError{Key: key, Raw: raw, Err: errors.NotFoundf("field %q", key)}
		}
		value, err := field.Parse(raw)
		if err != nil {
			e.mu.Unlock()
			return &FieldError{Key: key, Raw: raw, Err: err}
		}
		next[key] = value
	}
	nodeID := view.Node.ID
	view.Effective = next
	view.Node.Overrides = maps.Clone(next)
	e.mu.Unlock()

	return e.canvas.UpdateNodeConfig(ctx, nodeID, next)
}

// Delete removes the open node after confirmation. It reports whether the
// node was deleted.
func (e *Editor) Delete(ctx context.Context, c Confirmer) (bool, error) {
	e.mu.Lock()
	view := e.view
	e.mu.Unlock()
	if view == nil {
		return false, errors.Trace(ErrNoView)
	}
	if !c.Confirm(DeletePrompt) {
		return false, nil
	}

	e.mu.Lock()
	e.ticket++
	e.view = nil
	e.mu.Unlock()

	if err := e.canvas.DeleteNode(ctx, view.Node.ID); err != nil {
		return true, err
	}
	return true, nil
}

func findField(fields []registry.Field, key string) (registry.Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return registry.Field{}, false
}

func copyView(v *View) *View {
	cp := *v
	cp.Effective = maps.Clone(v.Effective)
	cp.Node.Overrides = maps.Clone(v.Node.Overrides)
	cp.Fields = append([]registry.Field(nil), v.Fields...)
	return &cp
}
