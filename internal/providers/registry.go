package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// LLMProviderConfig configures one named LLM provider entry.
type LLMProviderConfig struct {
	Type       string  `json:"type" mapstructure:"type"` // "openrouter", "openai", "mock"
	Model      string  `json:"model" mapstructure:"model"`
	APIKey     string  `json:"api_key" mapstructure:"api_key"`
	BaseURL    string  `json:"base_url,omitempty" mapstructure:"base_url"`
	RPS        float64 `json:"rps,omitempty" mapstructure:"rps"`
	MaxRetries int     `json:"max_retries,omitempty" mapstructure:"max_retries"`
	Enabled    bool    `json:"enabled" mapstructure:"enabled"`
}

// RegistryConfig is the full provider configuration.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// Registry holds instantiated LLM clients keyed by provider name. It supports
// hot reload: the config manager calls Reload when the config file changes.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]LLMClient
	logger  *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]LLMClient),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger used for reload events.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Reload rebuilds the client set from config. Unknown or disabled entries are
// skipped with a warning; a rebuilt registry fully replaces the previous one.
func (r *Registry) Reload(cfg RegistryConfig) {
	clients := make(map[string]LLMClient, len(cfg.LLMProviders))

	for name, pc := range cfg.LLMProviders {
		if !pc.Enabled {
			continue
		}
		client, err := buildClient(pc)
		if err != nil {
			r.logger.Warn("skipping llm provider", "name", name, "error", err)
			continue
		}
		clients[name] = client
		r.logger.Debug("registered llm provider", "name", name, "type", pc.Type, "model", pc.Model)
	}

	r.mu.Lock()
	r.clients = clients
	r.mu.Unlock()
}

// Register adds or replaces a single client by name. Used by tests to install
// mocks without going through config.
func (r *Registry) Register(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Get returns the client for a provider name.
func (r *Registry) Get(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("llm provider not registered: %s", name)
	}
	return client, nil
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildClient(pc LLMProviderConfig) (LLMClient, error) {
	switch pc.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			RPS:          pc.RPS,
			MaxRetries:   pc.MaxRetries,
		}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			RPS:          pc.RPS,
			MaxRetries:   pc.MaxRetries,
		}), nil
	case "mock":
		mock := NewMockClient()
		mock.Latency = time.Millisecond
		return mock, nil
	default:
		return nil, fmt.Errorf("unknown llm provider type: %s", pc.Type)
	}
}
