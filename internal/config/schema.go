package config

// Config holds primer configuration.
// Stored at: ~/.primer/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`   // "openrouter", "openai", "mock"
	Model      string  `mapstructure:"model" yaml:"model"` // Model name
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RPS        float64 `mapstructure:"rps" yaml:"rps"` // Requests per second
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// PipelineCfg tunes the extraction pipeline.
type PipelineCfg struct {
	// ContinueThreshold and NewThreshold are the boundary hysteresis
	// thresholds; AmbiguityMargin widens the uncertain band between them.
	ContinueThreshold float64 `mapstructure:"continue_threshold" yaml:"continue_threshold"`
	NewThreshold      float64 `mapstructure:"new_threshold" yaml:"new_threshold"`
	AmbiguityMargin   float64 `mapstructure:"ambiguity_margin" yaml:"ambiguity_margin"`

	// StabilityGap is how many consecutive pages may pass without an
	// update before an open unit stabilizes.
	StabilityGap int `mapstructure:"stability_gap" yaml:"stability_gap"`

	// DigestWindow is how many recent page digests enter the context pack.
	DigestWindow int `mapstructure:"digest_window" yaml:"digest_window"`

	// Attempts and RetryDelaySeconds bound retries on transient inference
	// failures.
	Attempts          int `mapstructure:"attempts" yaml:"attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`

	// Per-stage provider overrides; empty means the default provider.
	SummarizeProvider  string `mapstructure:"summarize_provider" yaml:"summarize_provider,omitempty"`
	BoundaryProvider   string `mapstructure:"boundary_provider" yaml:"boundary_provider,omitempty"`
	SynthesizeProvider string `mapstructure:"synthesize_provider" yaml:"synthesize_provider,omitempty"`
	DedupeProvider     string `mapstructure:"dedupe_provider" yaml:"dedupe_provider,omitempty"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"`   // Max concurrent jobs
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				RPS:     2,
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				RPS:     2,
				Enabled: false,
			},
		},
		Pipeline: PipelineCfg{
			ContinueThreshold: 0.6,
			NewThreshold:      0.75,
			AmbiguityMargin:   0.05,
			StabilityGap:      3,
			DigestWindow:      3,
			Attempts:          3,
			RetryDelaySeconds: 1,
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			MaxWorkers:  4,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// StageProvider returns the provider name configured for a pipeline stage,
// falling back to the default provider.
func (c *Config) StageProvider(stage string) string {
	var name string
	switch stage {
	case "summarize":
		name = c.Pipeline.SummarizeProvider
	case "boundary":
		name = c.Pipeline.BoundaryProvider
	case "synthesize":
		name = c.Pipeline.SynthesizeProvider
	case "dedupe":
		name = c.Pipeline.DedupeProvider
	}
	if name == "" {
		name = c.Defaults.LLMProvider
	}
	return name
}
