package synthesize

import (
	"encoding/json"

	"github.com/jackzampolin/primer/internal/providers"
)

// Schema is the JSON schema for teaching description output.
var Schema = map[string]any{
	"name":   "teaching_description",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"teaching_description": map[string]any{
				"type":        "string",
				"description": "Tutor-facing teaching description, 100-800 characters, at least 30 words",
			},
		},
		"required":             []string{"teaching_description"},
		"additionalProperties": false,
	},
}

// Result is the parsed synthesis output.
type Result struct {
	TeachingDescription string `json:"teaching_description"`
}

// Request builds the chat request for one unit synthesis.
func Request(data UserPromptData) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(data)},
		},
		ResponseFormat: responseFormat(),
		Temperature:    0.3,
		MaxTokens:      1024,
	}
}

// ParseResult parses the structured response.
func ParseResult(parsedJSON json.RawMessage) (*Result, error) {
	var result Result
	if err := json.Unmarshal(parsedJSON, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func responseFormat() *providers.ResponseFormat {
	schemaJSON, _ := json.Marshal(Schema)
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: schemaJSON,
	}
}
