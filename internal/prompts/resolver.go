package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Resolver holds the registered embedded prompts.
type Resolver struct {
	mu       sync.RWMutex
	embedded map[string]EmbeddedPrompt
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt. Called during initialization by each
// stage package.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Get returns the embedded prompt for a key.
func (r *Resolver) Get(key string) (EmbeddedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	if !ok {
		return EmbeddedPrompt{}, fmt.Errorf("prompt not found: %s", key)
	}
	return p, nil
}

// All returns every registered prompt, sorted by key.
func (r *Resolver) All() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
