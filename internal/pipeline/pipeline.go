// Package pipeline implements incremental guideline extraction: pages flow
// one at a time through summarization, boundary classification, and content
// merging; units stabilize as pages move past them and are synthesized,
// gated, and deduplicated.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/primer/internal/backoff"
	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/providers"
	"github.com/jackzampolin/primer/internal/store"
)

// Default tuning values.
const (
	DefaultStabilityGap = 3
	DefaultDigestWindow = 3
)

// Clients holds the inference clients for each pipeline stage. Stages may
// share one client or use different models per stage.
type Clients struct {
	Summarize  providers.LLMClient
	Boundary   providers.LLMClient
	Synthesize providers.LLMClient
	Dedupe     providers.LLMClient
}

// Options tunes pipeline behavior. The zero value gets defaults applied.
type Options struct {
	// Thresholds controls the boundary hysteresis policy.
	Thresholds guideline.Thresholds

	// StabilityGap is the number of consecutive pages assigned elsewhere
	// after which an open unit stabilizes.
	StabilityGap int

	// DigestWindow is how many recent page digests enter the context pack.
	DigestWindow int

	// Attempts and RetryDelay bound the backoff on transient inference
	// failures.
	Attempts   uint
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Thresholds == (guideline.Thresholds{}) {
		o.Thresholds = guideline.DefaultThresholds()
	}
	if o.StabilityGap <= 0 {
		o.StabilityGap = DefaultStabilityGap
	}
	if o.DigestWindow <= 0 {
		o.DigestWindow = DefaultDigestWindow
	}
	if o.Attempts == 0 {
		o.Attempts = backoff.DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = backoff.DefaultDelay
	}
	return o
}

// Pipeline is the extraction engine. It is safe for sequential use per
// document; pages of one document must be processed in order.
type Pipeline struct {
	store   store.Store
	clients Clients
	opts    Options
	logger  *slog.Logger
}

// New creates a pipeline over a store and a set of inference clients.
func New(st store.Store, clients Clients, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:   st,
		clients: clients,
		opts:    opts.withDefaults(),
		logger:  logger.With("component", "pipeline"),
	}
}

// GetUnit returns one unit by its composite key.
func (p *Pipeline) GetUnit(ctx context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error) {
	return p.store.GetUnit(ctx, documentID, topicKey, subtopicKey)
}

// RebuildIndex reconstructs and persists the document's hierarchical index
// from its current unit set, then returns it.
func (p *Pipeline) RebuildIndex(ctx context.Context, documentID string) (*guideline.Index, error) {
	if err := p.refreshIndex(ctx, documentID); err != nil {
		return nil, err
	}
	return p.store.GetIndex(ctx, documentID)
}
