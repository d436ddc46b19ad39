package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockResponse scripts one response from the mock client.
type MockResponse struct {
	Text string
	JSON json.RawMessage
	// Err makes this call fail with the given error type.
	Err       error
	ErrorType string
}

// MockClient is an LLMClient for testing. Responses can be scripted in order;
// once the script is exhausted the client falls back to its default response.
type MockClient struct {
	Latency      time.Duration
	ShouldFail   bool
	ResponseText string
	ResponseJSON json.RawMessage

	RPS        float64
	Retries    int
	RetryDelay time.Duration

	mu        sync.Mutex
	responses []MockResponse

	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
		RPS:          100,
		Retries:      3,
		RetryDelay:   time.Millisecond,
	}
}

// Enqueue appends scripted responses, consumed in order by subsequent calls.
func (c *MockClient) Enqueue(responses ...MockResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, responses...)
}

// EnqueueJSON is a convenience wrapper scripting one structured response.
func (c *MockClient) EnqueueJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock: failed to marshal scripted response: %v", err))
	}
	c.Enqueue(MockResponse{JSON: data})
}

// Name returns the client identifier.
func (c *MockClient) Name() string { return MockClientName }

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *MockClient) RequestsPerSecond() float64 { return c.RPS }

// MaxRetries returns the maximum retry attempts.
func (c *MockClient) MaxRetries() int { return c.Retries }

// RetryDelayBase returns the base delay between retries.
func (c *MockClient) RetryDelayBase() time.Duration { return c.RetryDelay }

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = ErrorTypeCancelled
			result.ErrorMessage = ctx.Err().Error()
			result.ExecutionTime = time.Since(start)
			return result, ctx.Err()
		}
	}

	if c.ShouldFail {
		result.ErrorType = ErrorTypeNetwork
		result.ErrorMessage = "mock client configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}

	text, parsed := c.ResponseText, c.ResponseJSON
	c.mu.Lock()
	if len(c.responses) > 0 {
		next := c.responses[0]
		c.responses = c.responses[1:]
		c.mu.Unlock()

		if next.Err != nil {
			result.ErrorType = next.ErrorType
			if result.ErrorType == "" {
				result.ErrorType = ErrorTypeNetwork
			}
			result.ErrorMessage = next.Err.Error()
			result.ExecutionTime = time.Since(start)
			return result, next.Err
		}
		text, parsed = next.Text, next.JSON
	} else {
		c.mu.Unlock()
	}

	result.Success = true
	result.Content = text
	result.ExecutionTime = time.Since(start)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(text) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.CostUSD = 0.001

	if req.ResponseFormat != nil && len(parsed) > 0 {
		if err := ValidateStructured(req.ResponseFormat.JSONSchema, parsed); err != nil {
			result.Success = false
			result.ErrorType = ErrorTypeSchema
			result.ErrorMessage = err.Error()
			return result, fmt.Errorf("structured output invalid: %w", err)
		}
		result.ParsedJSON = parsed
		result.Content = string(parsed)
	}

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset clears the counter and any scripted responses.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.responses = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
