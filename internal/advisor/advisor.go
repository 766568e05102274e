package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"signal-gateway/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type GatewayConfig struct {
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int64
}

// Gateway sends one prompt to the model and returns its raw reply. It makes
// exactly one attempt per call.
type Gateway struct {
	tracer trace.Tracer
	llm    LLMClient
	cfg    GatewayConfig
}

// NewGateway builds a gateway. A nil llm yields a gateway that always fails,
// which callers treat as "model unavailable".
func NewGateway(tracer trace.Tracer, llm LLMClient, cfg GatewayConfig) *Gateway {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	return &Gateway{tracer: tracer, llm: llm, cfg: cfg}
}

func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "advisor.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.cfg.Model),
		attribute.Int("llm.prompt_length", len(prompt)),
	)

	if g.llm == nil {
		err := &domain.GatewayError{Reason: "no API key configured"}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	completion, err := g.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:       g.cfg.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(g.cfg.Temperature),
		MaxTokens:   openai.Int(g.cfg.MaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		reason := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timed out after " + g.cfg.Timeout.String()
		}
		return "", &domain.GatewayError{Reason: reason, Err: err}
	}
	if completion == nil || len(completion.Choices) == 0 {
		span.SetStatus(codes.Error, "empty response")
		return "", &domain.GatewayError{Reason: "no choices in response"}
	}

	reply := completion.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", &domain.GatewayError{Reason: "empty message content"}
	}
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

// NewOpenAIClient builds a client with SDK retries disabled. baseURL is
// optional.
func NewOpenAIClient(apiKey, baseURL string) LLMClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openaiClient{client: openai.NewClient(opts...)}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
