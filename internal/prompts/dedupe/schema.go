package dedupe

import (
	"encoding/json"

	"github.com/jackzampolin/primer/internal/providers"
)

// Schema is the JSON schema for duplicate detection output.
var Schema = map[string]any{
	"name":   "duplicate_pairs",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pairs": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"keep_topic_key": map[string]any{
							"type":        "string",
							"description": "topic_key of the unit to keep, copied exactly",
						},
						"keep_subtopic_key": map[string]any{
							"type":        "string",
							"description": "subtopic_key of the unit to keep, copied exactly",
						},
						"merge_topic_key": map[string]any{
							"type":        "string",
							"description": "topic_key of the unit to merge away, copied exactly",
						},
						"merge_subtopic_key": map[string]any{
							"type":        "string",
							"description": "subtopic_key of the unit to merge away, copied exactly",
						},
						"reason": map[string]any{
							"type":        "string",
							"description": "One-sentence reason the units duplicate each other",
						},
					},
					"required": []string{
						"keep_topic_key", "keep_subtopic_key",
						"merge_topic_key", "merge_subtopic_key", "reason",
					},
					"additionalProperties": false,
				},
				"description": "Pairs of duplicate units; empty when none",
			},
		},
		"required":             []string{"pairs"},
		"additionalProperties": false,
	},
}

// Pair is one detected duplicate pair.
type Pair struct {
	KeepTopicKey     string `json:"keep_topic_key"`
	KeepSubtopicKey  string `json:"keep_subtopic_key"`
	MergeTopicKey    string `json:"merge_topic_key"`
	MergeSubtopicKey string `json:"merge_subtopic_key"`
	Reason           string `json:"reason"`
}

// Result is the parsed duplicate detection output.
type Result struct {
	Pairs []Pair `json:"pairs"`
}

// Request builds the chat request for one document's duplicate scan.
func Request(data UserPromptData) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(data)},
		},
		ResponseFormat: responseFormat(),
		Temperature:    0.1,
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
