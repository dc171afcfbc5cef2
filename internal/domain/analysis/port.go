//go:generate go run go.uber.org/mock/mockgen -source=port.go -destination=../../mocks/mock_analysis.go -package=mocks
package analysis

import (
	"context"
	"io"
	"time"
)

// Backend is the external inference service. Complete makes exactly one call.
type Backend interface {
	Complete(ctx context.Context, in Instructions, artifact *ArtifactRef) (string, error)
}

// InstructionBuilder renders the kind-specific prompt of a request.
type InstructionBuilder interface {
	Build(req Request) (Instructions, error)
}

// RecordStore port (interface untuk persistence state analisis)
type RecordStore interface {
	Load(ctx context.Context, kind Kind, id string) (*Record, error)
	// MarkProcessing only touches the lifecycle phase and start time.
	MarkProcessing(ctx context.Context, kind Kind, id string, at time.Time) error
	// ApplyOutcome writes the whole update in a single statement.
	ApplyOutcome(ctx context.Context, kind Kind, id string, u StateUpdate) error
	// ListStale returns records processing since before the cutoff, plus
	// documents created before it that were never picked up at all.
	ListStale(ctx context.Context, before time.Time, limit int) ([]RecordRef, error)
}

// ArtifactReader opens stored artifacts for backends that need the bytes.
type ArtifactReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArtifactResolver turns a storage key into a location the backend can fetch.
type ArtifactResolver interface {
	URL(ctx context.Context, key string) (string, error)
}
