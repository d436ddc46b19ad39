package boundary

import (
	"encoding/json"

	"github.com/jackzampolin/primer/internal/providers"
)

// Schema is the JSON schema for boundary classification output.
var Schema = map[string]any{
	"name":   "boundary_decision",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_new": map[string]any{
				"type":        "boolean",
				"description": "True when the page starts a new instructional unit",
			},
			"topic_key": map[string]any{
				"type":        "string",
				"description": "Stable topic key; copied exactly from an open unit when continuing",
			},
			"topic_title": map[string]any{
				"type":        "string",
				"description": "Human-readable topic title",
			},
			"subtopic_key": map[string]any{
				"type":        "string",
				"description": "Stable subtopic key; copied exactly from an open unit when continuing",
			},
			"subtopic_title": map[string]any{
				"type":        "string",
				"description": "Human-readable subtopic title",
			},
			"continue_score": map[string]any{
				"type":        "number",
				"description": "Likelihood 0-1 that the page continues an open unit",
			},
			"new_score": map[string]any{
				"type":        "number",
				"description": "Likelihood 0-1 that the page starts a new unit",
			},
			"objectives": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Learning objectives stated or implied on this page",
			},
			"examples": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Worked examples or illustrations on this page",
			},
			"misconceptions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Common student misconceptions addressed on this page",
			},
			"assessments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{
							"type":        "string",
							"description": "Assessment question or task",
						},
						"answer": map[string]any{
							"type":        "string",
							"description": "Expected answer or solution sketch",
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []string{"easy", "medium", "hard"},
						},
					},
					"required":             []string{"prompt", "answer", "difficulty"},
					"additionalProperties": false,
				},
				"description": "Assessment items found on this page",
			},
		},
		"required": []string{
			"is_new", "topic_key", "topic_title", "subtopic_key", "subtopic_title",
			"continue_score", "new_score",
			"objectives", "examples", "misconceptions", "assessments",
		},
		"additionalProperties": false,
	},
}

// AssessmentResult is one assessment item in the parsed output.
type AssessmentResult struct {
	Prompt     string `json:"prompt"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}

// Result is the parsed boundary classification output.
type Result struct {
	IsNew          bool               `json:"is_new"`
	TopicKey       string             `json:"topic_key"`
	TopicTitle     string             `json:"topic_title"`
	SubtopicKey    string             `json:"subtopic_key"`
	SubtopicTitle  string             `json:"subtopic_title"`
	ContinueScore  float64            `json:"continue_score"`
	NewScore       float64            `json:"new_score"`
	Objectives     []string           `json:"objectives"`
	Examples       []string           `json:"examples"`
	Misconceptions []string           `json:"misconceptions"`
	Assessments    []AssessmentResult `json:"assessments"`
}

// Request builds the chat request for one boundary classification.
func Request(data UserPromptData) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(data)},
		},
		ResponseFormat: responseFormat(),
		Temperature:    0.1,
		MaxTokens:      2048,
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
