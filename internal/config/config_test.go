package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.LLMProviders) == 0 {
		t.Fatal("expected default LLM providers")
	}
	or, ok := cfg.LLMProviders["openrouter"]
	if !ok {
		t.Fatal("expected openrouter provider")
	}
	if or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if !or.Enabled {
		t.Error("expected openrouter to be enabled by default")
	}

	t.Run("thresholds", func(t *testing.T) {
		if cfg.Pipeline.ContinueThreshold != 0.6 {
			t.Errorf("expected continue threshold 0.6, got %v", cfg.Pipeline.ContinueThreshold)
		}
		if cfg.Pipeline.NewThreshold != 0.75 {
			t.Errorf("expected new threshold 0.75, got %v", cfg.Pipeline.NewThreshold)
		}
		if cfg.Pipeline.AmbiguityMargin != 0.05 {
			t.Errorf("expected ambiguity margin 0.05, got %v", cfg.Pipeline.AmbiguityMargin)
		}
	})

	t.Run("stability", func(t *testing.T) {
		if cfg.Pipeline.StabilityGap != 3 {
			t.Errorf("expected stability gap 3, got %d", cfg.Pipeline.StabilityGap)
		}
		if cfg.Pipeline.DigestWindow != 3 {
			t.Errorf("expected digest window 3, got %d", cfg.Pipeline.DigestWindow)
		}
	})
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_StageProvider(t *testing.T) {
	cfg := &Config{
		Defaults: DefaultsCfg{LLMProvider: "openrouter"},
		Pipeline: PipelineCfg{BoundaryProvider: "openai"},
	}

	t.Run("stage override wins", func(t *testing.T) {
		if got := cfg.StageProvider("boundary"); got != "openai" {
			t.Errorf("expected openai, got %s", got)
		}
	})

	t.Run("falls back to default", func(t *testing.T) {
		if got := cfg.StageProvider("summarize"); got != "openrouter" {
			t.Errorf("expected openrouter, got %s", got)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	os.Setenv("TEST_REGISTRY_KEY", "rk-42")
	defer os.Unsetenv("TEST_REGISTRY_KEY")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${TEST_REGISTRY_KEY}",
				Enabled: true,
			},
		},
	}

	rc := cfg.ToProviderRegistryConfig()
	if rc.LLMProviders["openrouter"].APIKey != "rk-42" {
		t.Errorf("expected resolved API key, got %s", rc.LLMProviders["openrouter"].APIKey)
	}
	if rc.LLMProviders["openrouter"].Model != "anthropic/claude-sonnet-4" {
		t.Errorf("unexpected model: %s", rc.LLMProviders["openrouter"].Model)
	}
}

func TestConfig_ToPipelineOptions(t *testing.T) {
	cfg := &Config{
		Pipeline: PipelineCfg{
			ContinueThreshold: 0.5,
			NewThreshold:      0.8,
			AmbiguityMargin:   0.1,
			StabilityGap:      5,
			DigestWindow:      2,
			Attempts:          4,
			RetryDelaySeconds: 2,
		},
	}

	opts := cfg.ToPipelineOptions()
	if opts.Thresholds.Continue != 0.5 || opts.Thresholds.New != 0.8 {
		t.Errorf("unexpected thresholds: %+v", opts.Thresholds)
	}
	if opts.StabilityGap != 5 {
		t.Errorf("expected stability gap 5, got %d", opts.StabilityGap)
	}
	if opts.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", opts.Attempts)
	}
	if opts.RetryDelay != 2*time.Second {
		t.Errorf("expected 2s retry delay, got %v", opts.RetryDelay)
	}
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	path := tmpDir + "/config.yaml"

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	content := string(data)
	if !strings.HasPrefix(content, "# Primer configuration") {
		t.Error("expected comment header in written config")
	}
	if !strings.Contains(content, "llm_providers:") {
		t.Error("expected llm_providers section in written config")
	}
	if !strings.Contains(content, "${OPENROUTER_API_KEY}") {
		t.Error("expected env var placeholder to survive marshalling")
	}
}
