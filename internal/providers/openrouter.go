package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RPS          float64       // requests per second (default: 5)
	MaxRetries   int           // max retry attempts (default: 3)
	RetryDelay   time.Duration // base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client

	rps        float64
	maxRetries int
	retryDelay time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic/claude-3.5-sonnet"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RPS == 0 {
		cfg.RPS = 5.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		rps:          cfg.RPS,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string { return OpenRouterName }

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *OpenRouterClient) RequestsPerSecond() float64 { return c.rps }

// MaxRetries returns the maximum retry attempts.
func (c *OpenRouterClient) MaxRetries() int { return c.maxRetries }

// RetryDelayBase returns the base delay between retries.
func (c *OpenRouterClient) RetryDelayBase() time.Duration { return c.retryDelay }

// Wire types for the OpenRouter chat completions API.

type orChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Usage          orUsageRequest  `json:"usage"`
}

type orUsageRequest struct {
	Include bool `json:"include"`
}

type orChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
	Model string `json:"model"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result := &ChatResult{
		Provider:  OpenRouterName,
		ModelUsed: model,
		RequestID: requestID,
		Attempts:  1,
	}

	body := orChatRequest{
		Model:          model,
		Messages:       req.Messages,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: req.ResponseFormat,
		Usage:          orUsageRequest{Include: true},
	}
	if req.Temperature != 0 {
		body.Temperature = &req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		errType := ErrorTypeNetwork
		if errors.Is(err, context.Canceled) {
			errType = ErrorTypeCancelled
		} else if errors.Is(err, context.DeadlineExceeded) {
			errType = ErrorTypeTimeout
		}
		return fail(result, start, errType, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(result, start, ErrorTypeNetwork, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		result.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return fail(result, start, ErrorTypeRateLimit, fmt.Errorf("rate limited (429)"))
	}
	if resp.StatusCode >= 500 {
		return fail(result, start, ErrorTypeNetwork, fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(string(raw), 200)))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("api error (%d): %s", resp.StatusCode, truncate(string(raw), 200)))
	}

	var parsed orChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("failed to decode response: %w", err))
	}
	if parsed.Error != nil {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("api error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("response contained no choices"))
	}

	result.Content = parsed.Choices[0].Message.Content
	result.PromptTokens = parsed.Usage.PromptTokens
	result.CompletionTokens = parsed.Usage.CompletionTokens
	result.TotalTokens = parsed.Usage.TotalTokens
	result.CostUSD = parsed.Usage.Cost
	if parsed.Model != "" {
		result.ModelUsed = parsed.Model
	}
	result.ExecutionTime = time.Since(start)

	// Parse and validate structured output locally; OpenRouter routes to
	// backends with uneven native schema support.
	if req.ResponseFormat != nil {
		parsedJSON, perr := ParseStructured(result.Content)
		if perr == nil {
			perr = ValidateStructured(req.ResponseFormat.JSONSchema, parsedJSON)
		}
		if perr != nil {
			result.Success = false
			result.ErrorType = ErrorTypeSchema
			result.ErrorMessage = perr.Error()
			return result, fmt.Errorf("structured output invalid: %w", perr)
		}
		result.ParsedJSON = parsedJSON
	}

	result.Success = true
	return result, nil
}

func fail(result *ChatResult, start time.Time, errType string, err error) (*ChatResult, error) {
	result.Success = false
	result.ErrorType = errType
	result.ErrorMessage = err.Error()
	result.ExecutionTime = time.Since(start)
	return result, err
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
