package workspace

import (
	"github.com/juju/errors"

	"github.com/msalah0e/cloudcanvas/internal/apiclient"
)

const (
	// ErrNotFound means the backend has no workspace with the requested id.
	ErrNotFound = errors.ConstError("workspace not found")

	// ErrPersistence means a save did not reach the backend. Local state is
	// left as it was before the save.
	ErrPersistence = errors.ConstError("workspace save failed")

	// ErrNoWorkspace is returned when saving before any workspace is loaded.
	ErrNoWorkspace = errors.ConstError("no workspace loaded")
)

// ErrTransientFetch is re-exported for callers that only import workspace.
const ErrTransientFetch = apiclient.ErrTransientFetch

func classifyLoad(err error, id string) error {
	annotated := errors.Annotatef(err, "loading workspace %q", id)
	switch {
	case apiclient.IsNotFound(err):
		return errors.WithType(annotated, ErrNotFound)
	case apiclient.IsTransient(err):
		return annotated
	default:
		return errors.WithType(annotated, ErrTransientFetch)
	}
}
