// Package llmcall provides LLM call recording for traceability. Every
// inference call is recorded with its prompt key, response, and token counts
// so finalization reports can be audited call by call.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/primer/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	DocumentID string `json:"document_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	JobID      string `json:"job_id,omitempty"`

	// Prompt traceability
	PromptKey string `json:"prompt_key"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage and cost
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`

	Response string `json:"response"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	DocumentID string
	PageNumber int
	JobID      string
	PromptKey  string
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		DocumentID:   opts.DocumentID,
		PageNumber:   opts.PageNumber,
		JobID:        opts.JobID,
		PromptKey:    opts.PromptKey,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Response:     result.Content,
		Success:      result.Success,
	}

	if !result.Success {
		call.ErrorType = result.ErrorType
		call.Error = result.ErrorMessage
	}

	return call
}
