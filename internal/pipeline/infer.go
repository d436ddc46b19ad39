package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/primer/internal/backoff"
	"github.com/jackzampolin/primer/internal/llmcall"
	"github.com/jackzampolin/primer/internal/providers"
)

// infer runs one structured inference call with the pipeline's failure
// policy: transient errors (rate limit, network, timeout) retry under
// bounded exponential backoff; a malformed structured result gets exactly
// one corrective retry carrying the schema and the bad output; anything
// else fails immediately. Every attempt is recorded to the store.
func (p *Pipeline) infer(ctx context.Context, client providers.LLMClient, req *providers.ChatRequest, opts llmcall.RecordOptions) (*providers.ChatResult, error) {
	if client == nil {
		return nil, errors.New("no inference client configured")
	}

	var result *providers.ChatResult
	repaired := false

	err := backoff.Do(ctx, p.opts.Attempts, p.opts.RetryDelay, func() error {
		res, err := client.Chat(ctx, req)
		if res == nil {
			if err == nil {
				err = errors.New("client returned no result")
			}
			return backoff.Permanent(err)
		}
		p.recordCall(ctx, res, opts)

		if res.Success {
			result = res
			return nil
		}

		if res.ErrorType == providers.ErrorTypeSchema && !repaired {
			// One corrective round trip: re-ask with the schema and the
			// malformed output appended. A second schema failure is final.
			repaired = true
			req = repairRequest(req, res)
			return fmt.Errorf("malformed structured result: %s", res.ErrorMessage)
		}
		if res.Transient() {
			return fmt.Errorf("%s: %s", res.ErrorType, res.ErrorMessage)
		}
		return backoff.Permanent(fmt.Errorf("%s: %s", res.ErrorType, res.ErrorMessage))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// repairRequest builds the corrective follow-up request: the original
// messages, the model's bad output, and a repair instruction.
func repairRequest(req *providers.ChatRequest, res *providers.ChatResult) *providers.ChatRequest {
	var schema []byte
	if req.ResponseFormat != nil {
		schema = req.ResponseFormat.JSONSchema
	}
	next := *req
	next.Messages = append(append([]providers.Message{}, req.Messages...),
		providers.Message{Role: "assistant", Content: res.Content},
		providers.Message{Role: "user", Content: providers.RepairPrompt(schema, res.Content, errors.New(res.ErrorMessage))},
	)
	return &next
}

// recordCall persists a call record. Recording failures are logged, not
// propagated: traceability must never fail a page.
func (p *Pipeline) recordCall(ctx context.Context, res *providers.ChatResult, opts llmcall.RecordOptions) {
	call := llmcall.FromChatResult(res, opts)
	if call == nil {
		return
	}
	if err := p.store.PutCall(ctx, call); err != nil {
		p.logger.Warn("failed to record llm call",
			"prompt_key", opts.PromptKey,
			"document_id", opts.DocumentID,
			"error", err)
	}
}
