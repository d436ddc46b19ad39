package summarize

import (
	"encoding/json"

	"github.com/jackzampolin/primer/internal/providers"
)

// Schema is the JSON schema for digest output.
var Schema = map[string]any{
	"name":   "page_digest",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"digest": map[string]any{
				"type":        "string",
				"description": "Extractive summary of the page, 60 words or fewer",
			},
		},
		"required":             []string{"digest"},
		"additionalProperties": false,
	},
}

// Result is the parsed digest output.
type Result struct {
	Digest string `json:"digest"`
}

// Request builds the chat request for one page digest.
func Request(data UserPromptData) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(data)},
		},
		ResponseFormat: responseFormat(),
		Temperature:    0.1,
		MaxTokens:      256,
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
