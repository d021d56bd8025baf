package excuse

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultMaxTokens bounds the completion length
	DefaultMaxTokens = 300
	// DefaultHTTPTimeout is the transport timeout. Service applies the tighter
	// per-excuse deadline through the context.
	DefaultHTTPTimeout = 30 * time.Second
)

// OpenAIGenerator asks an OpenAI-compatible chat completion API for an excuse
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIGenerator creates a generator. Empty baseURL and model use the defaults.
func NewOpenAIGenerator(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIGenerator {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultHTTPTimeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAIGenerator{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Generate sends the excuse prompt and returns the first choice's text
func (g *OpenAIGenerator) Generate(ctx context.Context, eventContext string) (string, error) {
	prompt := BuildPrompt(eventContext)

	if g.debugMode {
		g.logger.Debug("llm_api_request",
			zap.String("operation", "generate_excuse"),
			zap.String("model", g.model),
			zap.String("prompt_preview", SanitizePrompt(prompt, false)),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write short, funny excuses for skipping calendar events. Reply with the excuse only."),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(DefaultMaxTokens),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if g.debugMode {
			g.logger.Debug("llm_api_error",
				zap.String("operation", "generate_excuse"),
				zap.String("model", g.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyExcuse
	}

	if g.debugMode {
		g.logger.Debug("llm_api_response",
			zap.String("operation", "generate_excuse"),
			zap.String("model", g.model),
			zap.String("response_preview", SanitizeResponse(content, false)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}
