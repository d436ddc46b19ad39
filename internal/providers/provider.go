// Package providers implements the inference service contract: a single Chat
// capability over interchangeable LLM backends. The pipeline cares only that
// structured results are distinguishable from transient failures; which model
// serves a call is configuration.
package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is the interface every inference backend implements.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string

	// Rate limiting and retry properties, consumed by workers.
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat requests structured output conforming to a JSON schema.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty).
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     time.Duration

	// Structured output. When set, clients parse and validate the response
	// against the schema and surface failures as ErrorTypeSchema.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	RequestID string `json:"-"`
}

// Error types reported in ChatResult.ErrorType. The pipeline's retry policy
// branches on these: schema errors get one corrective retry, transient errors
// get bounded backoff, everything else fails the page.
const (
	ErrorTypeRateLimit = "rate_limit"
	ErrorTypeNetwork   = "network"
	ErrorTypeTimeout   = "timeout"
	ErrorTypeSchema    = "schema"
	ErrorTypeAPI       = "api"
	ErrorTypeCancelled = "context_cancelled"
)

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // set if ResponseFormat was requested

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryAfter   time.Duration
}

// Transient reports whether the result's failure is worth retrying.
func (r *ChatResult) Transient() bool {
	switch r.ErrorType {
	case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	}
	return false
}
