// Package jobs provides background job execution over store-backed job
// records. Jobs retrieve their dependencies from context so job types stay
// decoupled from server wiring.
package jobs

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/primer/internal/pipeline"
	"github.com/jackzampolin/primer/internal/providers"
	"github.com/jackzampolin/primer/internal/store"
)

// Job is the interface that all job types must implement.
type Job interface {
	// Type returns the job type identifier.
	Type() string

	// Execute runs the job. It should respect context cancellation.
	// Dependencies are retrieved via DepsFromContext(ctx).
	//
	// Execute must be idempotent: jobs may be resumed after restarts or
	// failures, so implementations check existing state before working
	// and handle partial completion gracefully.
	Execute(ctx context.Context) error

	// Status returns the current status of the job as key-value pairs.
	// Returns a nil map if there is nothing to report.
	Status(ctx context.Context) (map[string]string, error)
}

// Dependencies provides access to shared resources for job execution.
type Dependencies struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Registry *providers.Registry
	Logger   *slog.Logger
}

// depsKey is the context key for Dependencies.
type depsKey struct{}

// ContextWithDeps returns a new context with Dependencies attached.
func ContextWithDeps(ctx context.Context, deps Dependencies) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// DepsFromContext retrieves Dependencies from the context.
// Returns a Dependencies with nil fields if not found.
func DepsFromContext(ctx context.Context) Dependencies {
	deps, ok := ctx.Value(depsKey{}).(Dependencies)
	if !ok {
		return Dependencies{}
	}
	return deps
}
