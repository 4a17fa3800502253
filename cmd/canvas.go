package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/apiclient"
	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/editor"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// canvasBounds is the notional canvas element terminal coordinates are
// measured against.
var canvasBounds = canvas.Rect{Width: 1280, Height: 800}

// board is one open workspace: the store with its controller and editor.
type board struct {
	id     string
	store  *workspace.Store
	ctrl   *canvas.Controller
	editor *editor.Editor
	stop   func()
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// openBoard loads workspace id, restores its local edges and viewport and
// keeps the edge list in local state from then on.
func openBoard(ctx context.Context, id string) (*board, error) {
	log := loadLogger()
	comps := loadCatalog()
	store := workspace.NewStore(workspace.NewAPI(loadClient()), comps,
		workspace.WithLogger(log),
		workspace.WithConcurrency(loadConfig().Parallel.Concurrency),
	)
	if err := store.Load(ctx, id); err != nil {
		return nil, err
	}
	if n := store.RestoreEdges(state.Edges(id)); n > 0 {
		log.Debug().Str("workspaceId", id).Int("edges", n).Msg("restored edges")
	}

	ctrl := canvas.New(store, canvas.WithLogger(log))
	vp, ok := state.Viewport(id)
	if !ok {
		vp = canvas.DefaultViewport()
	}
	ctrl.SetViewport(&vp)

	b := &board{
		id:     id,
		store:  store,
		ctrl:   ctrl,
		editor: editor.New(ctrl, comps, loadSchemas(), editor.WithLogger(log)),
	}
	b.stop = store.Subscribe(func(ch workspace.Change) {
		if ch.Kind == workspace.ChangeLoaded {
			return
		}
		if err := state.SetEdges(id, store.Edges()); err != nil {
			log.Warn().Err(err).Str("workspaceId", id).Msg("storing edges")
		}
	})
	return b, nil
}

func (b *board) Close() {
	b.stop()
	b.ctrl.Close()
}

// node resolves a full id or a unique id prefix.
func (b *board) node(ref string) (workspace.Node, error) {
	if n, ok := b.store.Node(ref); ok {
		return n, nil
	}
	var matches []workspace.Node
	for _, n := range b.store.Nodes() {
		if strings.HasPrefix(n.ID, ref) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return workspace.Node{}, errors.NotFoundf("node %q", ref)
	case 1:
		return matches[0], nil
	}
	return workspace.Node{}, errors.Errorf("node %q is ambiguous (%d matches)", ref, len(matches))
}

// currentWorkspace returns the workspace opened with `workspace open`, or
// exits with a hint.
func currentWorkspace() string {
	id := state.Current()
	if id == "" {
		ui.Warn.Println("  No workspace open.")
		fmt.Println("  Open one: cloudcanvas workspace open <id>")
		os.Exit(1)
	}
	return id
}

// mustOpenBoard opens the current workspace or exits.
func mustOpenBoard(ctx context.Context) *board {
	id := currentWorkspace()
	b, err := openBoard(ctx, id)
	if err != nil {
		reportLoadError(id, err)
		os.Exit(1)
	}
	return b
}

func reportLoadError(id string, err error) {
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		ui.Bad.Printf("  Workspace %s not found\n", id)
		fmt.Println("  See your workspaces: cloudcanvas workspace list")
	case apiclient.IsTransient(err):
		ui.Bad.Printf("  Could not reach the backend: %v\n", err)
		fmt.Println("  Try again in a moment.")
	default:
		ui.Bad.Printf("  Failed to load workspace %s: %v\n", id, err)
	}
}

// reportSave prints a failed save after a gesture. It reports whether the
// save went through.
func reportSave(err error) bool {
	if err == nil {
		return true
	}
	ui.Warn.Printf("  %s Not saved: %v\n", ui.WarnIcon(), err)
	return false
}

func shortID(id string) string {
	if len(id) > 13 {
		return id[:13]
	}
	return id
}

// record appends a gesture to the activity log, ignoring write errors.
func record(action, workspaceID, nodeID, details string, err error) {
	if err != nil {
		_ = activity.LogFailure(action, workspaceID, nodeID, err)
		return
	}
	_ = activity.Log(action, workspaceID, nodeID, details)
}
