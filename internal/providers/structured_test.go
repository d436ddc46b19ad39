package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructured(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain json", `{"a":1}`, `{"a":1}`, false},
		{"code fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"surrounding prose", "Here is the result:\n{\"a\":1}\nDone.", `{"a":1}`, false},
		{"array", `[1,2,3]`, `[1,2,3]`, false},
		{"empty", "", "", true},
		{"not json", "no json here", "", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseStructured(c.content)
			if c.wantErr {
				if err == nil {
					t.Fatalf("want error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructured: %v", err)
			}
			if string(got) != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestValidateStructured(t *testing.T) {
	schema := json.RawMessage(`{
		"name": "test",
		"strict": true,
		"schema": {
			"type": "object",
			"properties": {
				"digest": {"type": "string"}
			},
			"required": ["digest"],
			"additionalProperties": false
		}
	}`)

	t.Run("valid", func(t *testing.T) {
		if err := ValidateStructured(schema, json.RawMessage(`{"digest":"ok"}`)); err != nil {
			t.Errorf("valid document rejected: %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		if err := ValidateStructured(schema, json.RawMessage(`{}`)); err == nil {
			t.Error("document missing required field accepted")
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		if err := ValidateStructured(schema, json.RawMessage(`{"digest":7}`)); err == nil {
			t.Error("document with wrong field type accepted")
		}
	})

	t.Run("empty schema is a no-op", func(t *testing.T) {
		if err := ValidateStructured(nil, json.RawMessage(`{"anything":true}`)); err != nil {
			t.Errorf("nil schema rejected document: %v", err)
		}
	})
}

func TestMockClientStructured(t *testing.T) {
	client := NewMockClient()
	client.Latency = 0
	client.EnqueueJSON(map[string]any{"digest": "a short summary"})

	schema := json.RawMessage(`{"name":"t","schema":{"type":"object","properties":{"digest":{"type":"string"}},"required":["digest"]}}`)
	result, err := client.Chat(t.Context(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "summarize"}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: schema},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.ParsedJSON == nil {
		t.Fatal("ParsedJSON not set")
	}

	var out struct {
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal(result.ParsedJSON, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Digest != "a short summary" {
		t.Errorf("digest = %q", out.Digest)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Reload(RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"fast":     {Type: "mock", Enabled: true},
		"disabled": {Type: "mock", Enabled: false},
		"broken":   {Type: "no-such-type", Enabled: true},
	}})

	if _, err := r.Get("fast"); err != nil {
		t.Errorf("Get(fast): %v", err)
	}
	if _, err := r.Get("disabled"); err == nil {
		t.Error("disabled provider was registered")
	}
	if _, err := r.Get("broken"); err == nil {
		t.Error("unknown provider type was registered")
	}

	names := r.List()
	if len(names) != 1 || names[0] != "fast" {
		t.Errorf("List() = %v, want [fast]", names)
	}
}
