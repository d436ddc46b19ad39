package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RPS          float64
	MaxRetries   int
	RetryDelay   time.Duration
}

// OpenAIClient implements LLMClient on the official OpenAI SDK.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string

	rps        float64
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// The SDK's built-in retries would hide attempt counts from the
		// pipeline's own backoff policy; disable them.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		rps:          cfg.RPS,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *OpenAIClient) RequestsPerSecond() float64 { return c.rps }

// MaxRetries returns the maximum retry attempts.
func (c *OpenAIClient) MaxRetries() int { return c.maxRetries }

// RetryDelayBase returns the base delay between retries.
func (c *OpenAIClient) RetryDelayBase() time.Duration { return c.retryDelay }

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
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
		Provider:  OpenAIName,
		ModelUsed: model,
		RequestID: requestID,
		Attempts:  1,
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if req.ResponseFormat != nil {
		schemaParam, err := openAISchemaParam(req.ResponseFormat)
		if err != nil {
			return fail(result, start, ErrorTypeAPI, err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: schemaParam,
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errType, retryAfter := classifyOpenAIError(ctx, err)
		result.RetryAfter = retryAfter
		return fail(result, start, errType, fmt.Errorf("openai chat failed: %w", err))
	}
	if len(completion.Choices) == 0 {
		return fail(result, start, ErrorTypeAPI, fmt.Errorf("response contained no choices"))
	}

	result.Content = completion.Choices[0].Message.Content
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)
	if completion.Model != "" {
		result.ModelUsed = completion.Model
	}
	result.ExecutionTime = time.Since(start)

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

// openAISchemaParam converts our canonical {"name","strict","schema"} wrapper
// into the SDK's response format parameter.
func openAISchemaParam(rf *ResponseFormat) (*shared.ResponseFormatJSONSchemaParam, error) {
	var wrapper struct {
		Name   string          `json:"name"`
		Strict bool            `json:"strict"`
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(rf.JSONSchema, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid response format schema: %w", err)
	}
	if wrapper.Name == "" {
		wrapper.Name = "structured_output"
	}

	var schemaDoc any
	if len(wrapper.Schema) > 0 {
		if err := json.Unmarshal(wrapper.Schema, &schemaDoc); err != nil {
			return nil, fmt.Errorf("invalid inner schema: %w", err)
		}
	}

	return &shared.ResponseFormatJSONSchemaParam{
		JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   wrapper.Name,
			Schema: schemaDoc,
			Strict: openai.Bool(wrapper.Strict),
		},
	}, nil
}

func classifyOpenAIError(ctx context.Context, err error) (string, time.Duration) {
	if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return ErrorTypeCancelled, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout, 0
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return ErrorTypeRateLimit, retryAfter
		case apiErr.StatusCode >= 500:
			return ErrorTypeNetwork, 0
		default:
			return ErrorTypeAPI, 0
		}
	}
	return ErrorTypeNetwork, 0
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
