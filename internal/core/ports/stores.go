package ports

import (
	"context"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

// ObjectStore retrieves model object graphs from a remote Speckle server.
// Implementations must not load whole graphs eagerly: the root comes from
// ResolveModel + Object, child references are expanded on demand through
// further Object calls.
type ObjectStore interface {
	// ResolveModel resolves a model reference to display metadata and the root
	// object id of the referenced version (latest when the ref pins none).
	ResolveModel(ctx context.Context, ref domain.ModelRef) (*domain.ModelInfo, error)

	// Object fetches one object by id from the project the ref points at.
	Object(ctx context.Context, ref domain.ModelRef, objectID string) (*domain.Node, error)

	// NotifyReceived reports a completed download back to the server.
	// Best effort: failures are logged by callers, never fatal.
	NotifyReceived(ctx context.Context, ref domain.ModelRef, versionID string) error
}
